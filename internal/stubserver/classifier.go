package stubserver

import (
	"fmt"
	"strings"
)

// GeneralCategory is used when no keyword matches.
const GeneralCategory = "عام"

// RiskInfo describes one risk category and its suggested solutions.
type RiskInfo struct {
	Description string
	Solutions   []string
	Keywords    []string
}

// Categories 风险类别（与真实后端一致）
// Categories mirrors the category set of the real classifier backend.
var Categories = map[string]RiskInfo{
	"أمنية": {
		Description: "مخاطر تتعلق بالأمن والحماية والسرقة والتخريب",
		Solutions:   []string{"تركيب كاميرات مراقبة", "توظيف حراس أمن", "تركيب بوابات إلكترونية", "وضع شرائح أمان على الكتب"},
		Keywords:    []string{"سرقة", "تخريب", "اقتحام", "أمن", "حارس", "theft", "stolen", "vandal", "security", "break-in"},
	},
	"بيئية": {
		Description: "مخاطر بيئية وطبيعية مثل الرطوبة والحرارة والحشرات",
		Solutions:   []string{"تركيب نظام تكييف مركزي", "صيانة دورية لنظام التهوية", "عزل النوافذ والأسقف", "رش مبيدات حشرية آمنة"},
		Keywords:    []string{"رطوبة", "حرارة", "حشرات", "تسرب", "مياه", "عفن", "humidity", "heat", "insect", "leak", "water", "mold"},
	},
	"تقنية": {
		Description: "مخاطر تقنية وتكنولوجية مثل أعطال الأنظمة والشبكات",
		Solutions:   []string{"تحديث الأنظمة بانتظام", "عمل نسخ احتياطية يومية", "تركيب برامج حماية", "التعاقد مع دعم فني"},
		Keywords:    []string{"نظام", "شبكة", "إنترنت", "فيروس", "حاسوب", "بيانات", "system", "network", "internet", "virus", "computer", "server", "data"},
	},
	"تشغيلية": {
		Description: "مخاطر تشغيلية يومية مثل تأخر الخدمات وأخطاء العمليات",
		Solutions:   []string{"وضع إجراءات تشغيلية موحدة", "تدريب الموظفين على الإجراءات", "أتمتة العمليات الروتينية", "متابعة دورية للعمليات"},
		Keywords:    []string{"تأخر", "إعارة", "فهرسة", "خطأ", "طابور", "delay", "loan", "catalog", "queue", "mistake"},
	},
	"إدارية": {
		Description: "مخاطر إدارية مثل نقص الموظفين وضعف التواصل",
		Solutions:   []string{"وضع خطة استراتيجية", "تحسين التواصل الداخلي", "توفير ميزانية كافية", "تدريب وتطوير الموظفين"},
		Keywords:    []string{"موظفين", "ميزانية", "إدارة", "تواصل", "staff", "budget", "management", "communication"},
	},
	"مادية/معدات": {
		Description: "مخاطر مادية ومعدات مثل أعطال الأجهزة والأثاث",
		Solutions:   []string{"صيانة دورية للمعدات", "استبدال المعدات القديمة", "توفير قطع غيار احتياطية", "التعاقد مع شركة صيانة"},
		Keywords:    []string{"أجهزة", "أثاث", "رفوف", "طابعة", "مكيف", "equipment", "furniture", "shelf", "shelves", "printer", "broken"},
	},
	GeneralCategory: {
		Description: "مخاطر عامة متنوعة",
		Solutions:   []string{"تقييم شامل للمخاطر", "خطط طوارئ", "مراجعة دورية للإجراءات"},
	},
}

// CategoryNames lists the categories in a stable order for /health.
var CategoryNames = []string{"أمنية", "بيئية", "تقنية", "تشغيلية", "إدارية", "مادية/معدات", GeneralCategory}

// Classification is the classifier outcome. Confidence is a percentage.
type Classification struct {
	Category   string
	Confidence float64
	Info       RiskInfo
}

// Classify 关键词分类器：命中最多的类别胜出
// Classify picks the category with the most keyword hits. Ties go to the
// earlier entry of CategoryNames; no hit yields the general category.
func Classify(text string) Classification {
	lower := strings.ToLower(text)
	best, bestHits := GeneralCategory, 0
	for _, name := range CategoryNames {
		hits := 0
		for _, kw := range Categories[name].Keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = name, hits
		}
	}
	confidence := 40.0
	if bestHits > 0 {
		confidence = min(60+float64(bestHits)*12.5, 99)
	}
	return Classification{Category: best, Confidence: confidence, Info: Categories[best]}
}

// Answer renders the chat reply text for a classification.
func (c Classification) Answer() string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 تصنيف المخاطر: %s\n\n", c.Category)
	fmt.Fprintf(&b, "📋 %s\n\n", c.Info.Description)
	fmt.Fprintf(&b, "📊 نسبة الثقة: %.1f%%\n\n", c.Confidence)
	b.WriteString("💡 الحلول المقترحة:\n")
	for i, s := range c.Info.Solutions {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}
