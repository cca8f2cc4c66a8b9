package dsl

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/fraudkit/pkg/conv"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("features", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("model_name", cel.StringType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Rule 是一条已编译的守卫规则。
type Rule struct {
	Expr string
	prg  cel.Program
}

// Guard 是请求守卫，使用 CEL (Common Expression Language) 实现。
// 规则在 NewGuard 时编译一次，Check 只执行已编译的程序，可并发调用。
//
// 可用变量：
//   - features：请求特征（能转为数值的值一律转为 double）
//   - model_name：请求的模型名
//
// 示例：
//   - `features.Amount >= 0.0`
//   - `"Time" in features && features.Time >= 0.0`
//   - `model_name in ["Logistic Regression", "Random Forest", "Support Vector Machine"]`
//
// 注意：访问不存在的 key 会产生求值错误，请先用 `"key" in features` 判断。
type Guard struct {
	rules []Rule
}

// NewGuard 编译规则。空表达式会被忽略；任何一条编译失败都返回错误。
func NewGuard(exprs []string) (*Guard, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	g := &Guard{}
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program %q: %w", expr, err)
		}
		g.rules = append(g.rules, Rule{Expr: expr, prg: prg})
	}
	return g, nil
}

// Len 返回已编译的规则数。
func (g *Guard) Len() int {
	if g == nil {
		return 0
	}
	return len(g.rules)
}

// Check 依次执行规则，返回第一条未通过的规则。
// 全部通过时返回 (nil, nil)；求值出错时返回出错的规则和错误。
func (g *Guard) Check(features map[string]any, modelName string) (*Rule, error) {
	if g.Len() == 0 {
		return nil, nil
	}

	input := map[string]any{
		"features":   buildFeatures(features),
		"model_name": modelName,
	}
	for i := range g.rules {
		rule := &g.rules[i]
		out, _, err := rule.prg.Eval(input)
		if err != nil {
			return rule, fmt.Errorf("eval %q: %w", rule.Expr, err)
		}
		pass, ok := out.Value().(bool)
		if !ok {
			return rule, fmt.Errorf("rule %q must return bool, got %T", rule.Expr, out.Value())
		}
		if !pass {
			return rule, nil
		}
	}
	return nil, nil
}

// buildFeatures 构建 CEL 的 features 输入：数值统一为 double，字符串与布尔原样保留
func buildFeatures(features map[string]any) map[string]any {
	out := make(map[string]any, len(features))
	for k, v := range features {
		switch v.(type) {
		case string, bool:
			out[k] = v
			continue
		}
		if f, ok := conv.ToFloat64(v); ok {
			out[k] = f
			continue
		}
		out[k] = v
	}
	return out
}
