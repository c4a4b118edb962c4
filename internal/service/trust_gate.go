package service

import (
	"grant-trust-go/internal/model"
	"grant-trust-go/pkg/log"
)

// GateDecision 是信任闸门的判定结果。
type GateDecision struct {
	Proceed   bool `json:"proceed"`
	Threshold int  `json:"threshold"`
}

// TrustGate 是生成前的失败即关闭（fail-closed）决策点：
// 检索置信度低于阈值时直接拦截，不调用模型，没有"降级生成"或"先试试看"的分支。
// 这既避免了无依据内容的编造风险，也省去了一次必然被丢弃的模型调用成本。
type TrustGate interface {
	Decide(confidence model.RetrievalConfidence) GateDecision
}

type trustGate struct {
	minGeneration int
}

// NewTrustGate 创建一个新的 TrustGate 实例。
func NewTrustGate(minGeneration int) TrustGate {
	return &trustGate{minGeneration: minGeneration}
}

// Decide 做纯阈值比较，放行与否只取决于分值。
func (g *trustGate) Decide(confidence model.RetrievalConfidence) GateDecision {
	proceed := confidence.Score >= g.minGeneration
	if !proceed {
		log.Infof("[TrustGate] 拦截生成, score: %d, threshold: %d", confidence.Score, g.minGeneration)
	}
	return GateDecision{Proceed: proceed, Threshold: g.minGeneration}
}
