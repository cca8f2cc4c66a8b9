package model

import (
	"context"
	"encoding/json"
	"fmt"
)

// leafNode 与 sklearn 的 TREE_LEAF 一致：子节点为 -1 表示叶子。
const leafNode = -1

// DecisionTree 是按 sklearn tree_ 数组布局导出的单棵决策树。
// 节点 i 为内部节点时：x[Feature[i]] <= Threshold[i] 走左子树，否则走右子树。
// Value[i] 为落在节点 i 的两类样本权重 [class0, class1]。
type DecisionTree struct {
	ChildrenLeft  []int        `json:"children_left"`
	ChildrenRight []int        `json:"children_right"`
	Feature       []int        `json:"feature"`
	Threshold     []float64    `json:"threshold"`
	Value         [][2]float64 `json:"value"`
}

// validate 校验数组长度与索引范围，保证遍历一定终止于叶子。
func (t *DecisionTree) validate(nFeatures int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("tree arrays have inconsistent lengths")
	}
	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leafNode && r == leafNode {
			continue
		}
		// 子节点编号必须大于父节点（sklearn 深度优先编号），据此排除环
		if l <= i || r <= i || l >= n || r >= n {
			return fmt.Errorf("node %d has invalid children (%d, %d)", i, l, r)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d, model has %d features", i, t.Feature[i], nFeatures)
		}
	}
	return nil
}

// proba 返回样本落入叶子的正类占比。
func (t *DecisionTree) proba(x []float64) float64 {
	node := 0
	for t.ChildrenLeft[node] != leafNode {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	v := t.Value[node]
	total := v[0] + v[1]
	if total <= 0 {
		return 0
	}
	return v[1] / total
}

// RandomForestModel 是决策树集成，正类概率为各树叶子概率的均值（与 sklearn predict_proba 一致）。
type RandomForestModel struct {
	Trees     []DecisionTree
	nFeatures int
}

func (m *RandomForestModel) Name() string     { return TypeRandomForest }
func (m *RandomForestModel) NumFeatures() int { return m.nFeatures }

func (m *RandomForestModel) PredictProba(_ context.Context, x []float64) (float64, error) {
	var sum float64
	for i := range m.Trees {
		sum += m.Trees[i].proba(x)
	}
	return sum / float64(len(m.Trees)), nil
}

func buildRandomForestModel(data []byte) (Classifier, error) {
	var raw struct {
		NFeatures int            `json:"n_features"`
		Trees     []DecisionTree `json:"trees"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.NFeatures <= 0 {
		return nil, fmt.Errorf("n_features must be positive")
	}
	if len(raw.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}
	for i := range raw.Trees {
		if err := raw.Trees[i].validate(raw.NFeatures); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return &RandomForestModel{Trees: raw.Trees, nFeatures: raw.NFeatures}, nil
}
