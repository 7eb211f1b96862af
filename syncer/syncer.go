// Package syncer reconciles locale stores against the keys the source
// code actually references.
//
// The master store is the source of truth for key existence; every
// derived store converges to the master's key set. New keys (referenced
// by code, absent from the master) are appended to the master with the
// pass-through policy — the key text is also the value — and to each
// derived store with a locale-appropriate placeholder. Placeholders come
// from a small glossary of common UI terms; anything not in the glossary
// gets a marked "needs translation" wrapper instead of a fabricated
// translation.
//
// Orphans (keys in a derived store but not in the master) are reported
// and never auto-resolved: removing a translation is a human decision.
package syncer

import (
	"sort"

	"github.com/cat-xierluo/locsmith/stringsfile"
)

// NeedsTranslationPrefix marks placeholder values that still require a
// human or machine translation pass.
const NeedsTranslationPrefix = "[needs translation] "

// Report is the outcome of one sync run. A run that changed nothing has
// zero added counts but still carries the orphan/missing diagnostics, so
// "nothing to do" and "nothing found" are distinguishable.
type Report struct {
	// NewKeys are the keys referenced by code but absent from the master,
	// sorted.
	NewKeys []string
	// AddedMaster is the number of entries appended to the master store.
	AddedMaster int
	// AddedDerived maps locale → number of entries appended.
	AddedDerived map[string]int
	// Orphans maps locale → keys present in the derived store but not in
	// the master. Reported, never removed.
	Orphans map[string][]string
	// Missing maps locale → master keys the derived store lacked before
	// this run brought it up to date.
	Missing map[string][]string
}

// Changed reports whether the run added any entries anywhere.
func (r *Report) Changed() bool {
	if r.AddedMaster > 0 {
		return true
	}
	for _, n := range r.AddedDerived {
		if n > 0 {
			return true
		}
	}
	return false
}

// Sync reconciles the master and derived stores in memory against the
// used-key set. The caller persists each store afterwards; a store whose
// write fails is simply reloaded from disk on the next run, so a failed
// persistence never corrupts anything.
//
// Running Sync twice with no source changes adds zero keys the second time.
func Sync(master *stringsfile.File, derived map[string]*stringsfile.File, usedKeys map[string]bool) *Report {
	report := &Report{
		AddedDerived: make(map[string]int),
		Orphans:      make(map[string][]string),
		Missing:      make(map[string][]string),
	}

	// New keys: referenced by code, unknown to the master.
	for key := range usedKeys {
		if !master.Has(key) {
			report.NewKeys = append(report.NewKeys, key)
		}
	}
	sort.Strings(report.NewKeys)

	// Master first: pass-through policy, value == key.
	report.AddedMaster = master.MergeMissing(report.NewKeys, func(k string) string { return k })

	// Derived stores converge to the full master key set.
	masterKeys := master.Keys()
	var langs []string
	for lang := range derived {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		store := derived[lang]

		missing, orphans := stringsfile.Diff(master, store)
		if len(missing) > 0 {
			report.Missing[lang] = missing
		}
		if len(orphans) > 0 {
			report.Orphans[lang] = orphans
		}

		added := store.MergeMissing(masterKeys, func(k string) string {
			return PlaceholderValue(lang, k)
		})
		report.AddedDerived[lang] = added
	}

	return report
}

// PlaceholderValue returns the initial value for a key newly added to a
// derived store. The glossary covers common UI terms; for everything else
// the key text is wrapped in a visible needs-translation marker. English
// derived stores get the key itself — source literals are English, so
// pass-through is the correct value, not a fabrication.
func PlaceholderValue(lang, key string) string {
	if isEnglish(lang) {
		return key
	}
	if table, ok := glossary[lang]; ok {
		if v, ok := table[key]; ok {
			return v
		}
	}
	return NeedsTranslationPrefix + key
}

func isEnglish(lang string) bool {
	return lang == "en" || lang == "en-US" || lang == "en-GB" || lang == "Base"
}

// glossary holds per-locale translations of common UI terms. Entries here
// are reviewed vocabulary, not machine output; anything absent falls back
// to the needs-translation wrapper.
var glossary = map[string]map[string]string{
	"zh-Hans": {
		"Save":     "保存",
		"Cancel":   "取消",
		"Delete":   "删除",
		"Edit":     "编辑",
		"Add":      "添加",
		"Done":     "完成",
		"Close":    "关闭",
		"Back":     "返回",
		"Next":     "下一步",
		"Continue": "继续",
		"Copy":     "复制",
		"Paste":    "粘贴",
		"Settings": "设置",

		"Active":     "激活",
		"Inactive":   "未激活",
		"Loading":    "加载中",
		"Processing": "处理中",
		"Ready":      "就绪",
		"Unknown":    "未知",
		"None":       "无",

		"History":     "历史记录",
		"Permissions": "权限",
		"Recording":   "录音",
	},
}
