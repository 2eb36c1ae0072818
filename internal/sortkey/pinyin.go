// Package sortkey implements the locale-aware ordering rules of
// spec.md §4.7: a first-character pinyin key for Chinese-mixed mod and
// title names, and the version canonicalisation used to decide
// mod-vs-game compatibility.
package sortkey

import (
	"strings"
	"unicode/utf8"
)

// pinyinInitials maps a CJK ideograph to the pinyin initial used for
// sorting. This is necessarily a hand-maintained table — no pinyin
// library appears anywhere in the retrieved example pack — covering the
// characters common in game/mod titles; anything absent falls back to
// the character's own UTF-8 bytes as its key, same as a non-CJK rune.
var pinyinInitials = map[rune]string{
	'传': "CHUAN", // hand-coded fix for an upstream table bug (spec.md §4.7)
	'黑': "HEI",
	'暗': "AN",
	'影': "YING",
	'魂': "HUN",
	'龙': "LONG",
	'王': "WANG",
	'剑': "JIAN",
	'仙': "XIAN",
	'侠': "XIA",
	'战': "ZHAN",
	'神': "SHEN",
	'鬼': "GUI",
	'怪': "GUAI",
	'物': "WU",
	'语': "YU",
	'最': "ZUI",
	'终': "ZHONG",
	'幻': "HUAN",
	'想': "XIANG",
	'曲': "QU",
	'世': "SHI",
	'界': "JIE",
	'之': "ZHI",
	'旅': "LV",
	'塞': "SAI",
	'尔': "ER",
	'达': "DA",
	'奇': "QI",
	'时': "SHI",
	'空': "KONG",
	'任': "REN",
	'天': "TIAN",
	'地': "DI",
	'人': "REN",
	'心': "XIN",
	'月': "YUE",
	'光': "GUANG",
	'夜': "YE",
	'风': "FENG",
	'云': "YUN",
	'海': "HAI",
	'山': "SHAN",
	'水': "SHUI",
	'火': "HUO",
	'雷': "LEI",
	'电': "DIAN",
	'星': "XING",
	'宙': "ZHOU",
	'中': "ZHONG",
	'文': "WEN",
	'日': "RI",
	'本': "BEN",
	'汉': "HAN",
	'化': "HUA",
	'补': "BU",
	'丁': "DING",
	'包': "BAO",
	'美': "MEI",
}

// isCJKIdeograph reports whether r falls in the CJK Unified Ideographs
// block (U+4E00-U+9FFF), the common case for mod/title names.
func isCJKIdeograph(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// Key returns the sort key for name: the pinyin initial of its first
// codepoint if that codepoint is a CJK ideograph, otherwise the raw
// UTF-8 bytes of the first codepoint. Comparison between keys is plain
// byte-lexicographic (spec.md §4.7).
func Key(name string) string {
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	if !isCJKIdeograph(r) {
		return name[:size]
	}
	if initial, ok := pinyinInitials[r]; ok {
		return initial
	}
	// Unknown ideograph: fall back to its own bytes so ordering is at
	// least stable, even though it won't sort alongside its pinyin peers.
	return name[:size]
}

// Less reports whether a sorts before b under the pinyin key rule.
func Less(a, b string) bool {
	return strings.Compare(Key(a), Key(b)) < 0
}
