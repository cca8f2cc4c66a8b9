// Package artifact 负责模型产物的定位与加载缓存。
//
// Resolver 只做纯路径构造，不做任何 I/O；文件缺失在加载阶段才会暴露。
// Registry 是可选的只读缓存：快照不可变，按文件指纹失效，不会返回过期产物。
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rushteam/fraudkit/core"
)

// DefaultDirName 是默认产物目录名，位于可执行文件同级目录下。
const DefaultDirName = "models"

// Paths 是一次解析的结果：模型产物与共享标准化器产物的绝对路径。
type Paths struct {
	Classifier string
	Scaler     string
}

// Resolver 按命名约定把模型名映射为产物路径。
// baseDir 在构造时固定为绝对路径，与调用方的工作目录无关。
type Resolver struct {
	baseDir string
}

// NewResolver 创建 Resolver。
// baseDir 为空时使用可执行文件所在目录下的 models 目录；相对路径在此处一次性转为绝对路径。
func NewResolver(baseDir string) (*Resolver, error) {
	if baseDir == "" {
		dir, err := DefaultBaseDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact dir %q: %w", baseDir, err)
	}
	return &Resolver{baseDir: abs}, nil
}

// DefaultBaseDir 返回可执行文件同级的 models 目录。
func DefaultBaseDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), DefaultDirName), nil
}

// BaseDir 返回固定的产物根目录。
func (r *Resolver) BaseDir() string {
	return r.baseDir
}

// Resolve 返回模型产物与共享标准化器产物的路径。
//
//	"Random Forest" -> <base>/random_forest_model.json, <base>/time_amount_scaler.json
func (r *Resolver) Resolve(modelName string) (Paths, error) {
	if modelName == "" {
		return Paths{}, core.ErrMissingFields
	}
	return Paths{
		Classifier: filepath.Join(r.baseDir, ClassifierFileName(modelName)),
		Scaler:     filepath.Join(r.baseDir, ScalerFileName()),
	}, nil
}

// ClassifierFileName 生成模型产物文件名：空格替换为下划线、转小写、追加 "_model" 与扩展名。
func ClassifierFileName(modelName string) string {
	return strings.ToLower(strings.ReplaceAll(modelName, " ", "_")) + core.ClassifierSuffix + core.ArtifactExtension
}

// ScalerFileName 返回共享标准化器文件名，与模型名无关。
func ScalerFileName() string {
	return core.ScalerBaseName + core.ArtifactExtension
}
