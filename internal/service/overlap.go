package service

import "strings"

// OverlapChecker 判断一个词元是否能在给定语料中找到。
// 生成置信度的 factVerification 和 queryCoverage 分量都经由它做词元匹配，
// 打分引擎的加权逻辑不感知具体实现，便于后续替换为更强的语义重合检查。
//
// 已知局限：当前的子串匹配无法识别否定、同义改写或矛盾，
// 词元重合度只是事实落地程度的一个弱代理指标。
type OverlapChecker interface {
	Contains(corpus, token string) bool
}

type substringOverlapChecker struct{}

// NewSubstringOverlapChecker 创建基于小写子串扫描的 OverlapChecker。
// 调用方负责预先将 corpus 转为小写，避免在每个词元上重复转换。
func NewSubstringOverlapChecker() OverlapChecker {
	return substringOverlapChecker{}
}

// Contains 做大小写不敏感的子串匹配。
func (substringOverlapChecker) Contains(corpus, token string) bool {
	return strings.Contains(corpus, strings.ToLower(token))
}
