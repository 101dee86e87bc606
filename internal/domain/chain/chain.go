// Package chain classifies venue names against known multi-location brands.
// Japanese brand names match by substring; romanized names match by a
// word-boundary regexp so that independent shops whose names merely resemble
// a brand word are not flagged.
package chain

import (
	"regexp"
	"strings"

	"github.com/sawanori/mapmapmap/internal/domain"
)

type pattern struct {
	ja string
	en *regexp.Regexp
}

var chainPatterns = []pattern{
	// Coffee chains
	{ja: "スターバックス", en: regexp.MustCompile(`(?i)\bStarbucks\b`)},
	{ja: "ドトール", en: regexp.MustCompile(`(?i)\bDoutor\b`)},
	{ja: "タリーズ", en: regexp.MustCompile(`(?i)\bTully'?s?\b`)},
	{ja: "コメダ", en: regexp.MustCompile(`(?i)\bKomeda\b`)},
	{ja: "サンマルクカフェ", en: regexp.MustCompile(`(?i)\bSt\. Marc Caf[eé]\b`)},
	{ja: "エクセルシオール", en: regexp.MustCompile(`(?i)\bExcelsior Caff[eé]\b`)},
	{ja: "プロント", en: regexp.MustCompile(`(?i)\bPRONTO\b`)},
	{ja: "ベローチェ", en: regexp.MustCompile(`(?i)\bVeloce\b`)},
	{ja: "カフェ・ド・クリエ", en: regexp.MustCompile(`(?i)\bCaf[eé] de Cri[eé]\b`)},

	// Fast food
	{ja: "マクドナルド", en: regexp.MustCompile(`(?i)\bMcDonald'?s?\b`)},
	{ja: "ケンタッキー", en: regexp.MustCompile(`(?i)\bKFC\b`)},
	{ja: "モスバーガー", en: regexp.MustCompile(`(?i)\bMos Burger\b`)},
	{ja: "ロッテリア", en: regexp.MustCompile(`(?i)\bLotteria\b`)},
	{ja: "バーガーキング", en: regexp.MustCompile(`(?i)\bBurger King\b`)},
	{ja: "ウェンディーズ", en: regexp.MustCompile(`(?i)\bWendy'?s?\b`)},
	{ja: "サブウェイ", en: regexp.MustCompile(`(?i)\bSubway\b`)},
	{ja: "フレッシュネスバーガー", en: regexp.MustCompile(`(?i)\bFreshness Burger\b`)},

	// Family restaurants
	{ja: "サイゼリヤ", en: regexp.MustCompile(`(?i)\bSaizeriya\b`)},
	{ja: "ガスト", en: regexp.MustCompile(`(?i)\bGusto\b`)},
	{ja: "ジョナサン", en: regexp.MustCompile(`(?i)\bJonathan'?s\b`)},
	{ja: "デニーズ", en: regexp.MustCompile(`(?i)\bDenny'?s?\b`)},
	{ja: "バーミヤン", en: regexp.MustCompile(`(?i)\bBarmiyan\b`)},
	{ja: "ココス", en: regexp.MustCompile(`(?i)\bCocos\b`)},
	{ja: "ロイヤルホスト", en: regexp.MustCompile(`(?i)\bRoyal Host\b`)},
	{ja: "ジョイフル", en: regexp.MustCompile(`(?i)\bJoyfull?\b`)},
	{ja: "ビッグボーイ", en: regexp.MustCompile(`(?i)\bBig Boy\b`)},

	// Beef bowl and curry
	{ja: "吉野家", en: regexp.MustCompile(`(?i)\bYoshinoya\b`)},
	{ja: "すき家", en: regexp.MustCompile(`(?i)\bSukiya\b`)},
	{ja: "松屋", en: regexp.MustCompile(`(?i)\bMatsuya\b`)},
	{ja: "なか卯", en: regexp.MustCompile(`(?i)\bNakau\b`)},
	{ja: "CoCo壱番屋", en: regexp.MustCompile(`(?i)\bCoCo Ichibanya\b`)},
	{ja: "ココイチ", en: regexp.MustCompile(`(?i)\bCoCo Ichi\b`)},

	// Conveyor-belt sushi
	{ja: "スシロー", en: regexp.MustCompile(`(?i)\bSushiro\b`)},
	{ja: "くら寿司", en: regexp.MustCompile(`(?i)\bKura Sushi\b`)},
	{ja: "はま寿司", en: regexp.MustCompile(`(?i)\bHama Sushi\b`)},
	{ja: "かっぱ寿司", en: regexp.MustCompile(`(?i)\bKappa Sushi\b`)},

	// Convenience stores
	{ja: "セブンイレブン", en: regexp.MustCompile(`(?i)\bSeven.?Eleven\b`)},
	{ja: "ファミリーマート", en: regexp.MustCompile(`(?i)\bFamilyMart\b`)},
	{ja: "ローソン", en: regexp.MustCompile(`(?i)\bLawson\b`)},
	{ja: "ミニストップ", en: regexp.MustCompile(`(?i)\bMinistop\b`)},

	// Izakaya chains
	{ja: "鳥貴族", en: regexp.MustCompile(`(?i)\bTorikizoku\b`)},
	{ja: "ワタミ", en: regexp.MustCompile(`(?i)\bWatami\b`)},
	{ja: "白木屋", en: regexp.MustCompile(`(?i)\bShirokiya\b`)},
	{ja: "魚民", en: regexp.MustCompile(`(?i)\bUotami\b`)},
	{ja: "笑笑", en: regexp.MustCompile(`(?i)\bWarawara\b`)},
	{ja: "和民", en: regexp.MustCompile(`(?i)\bWatami\b`)},

	// Ramen chains
	{ja: "一蘭", en: regexp.MustCompile(`(?i)\bIchiran\b`)},
	{ja: "一風堂", en: regexp.MustCompile(`(?i)\bIppudo\b`)},
	{ja: "天下一品", en: regexp.MustCompile(`(?i)\bTenkaippin\b`)},
	{ja: "幸楽苑", en: regexp.MustCompile(`(?i)\bKourakuen\b`)},
	{ja: "日高屋", en: regexp.MustCompile(`(?i)\bHidakaya\b`)},
}

// IsChain reports whether the venue name belongs to a known chain brand.
func IsChain(name string) bool {
	for _, p := range chainPatterns {
		if strings.Contains(name, p.ja) || p.en.MatchString(name) {
			return true
		}
	}
	return false
}

// FilterChainStores removes chain venues, preserving order.
func FilterChainStores(venues []domain.Venue) []domain.Venue {
	out := make([]domain.Venue, 0, len(venues))
	for _, v := range venues {
		if !IsChain(v.Name) {
			out = append(out, v)
		}
	}
	return out
}
