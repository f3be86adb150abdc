package ai

import (
	"fmt"
	"strings"
)

// PromptTemplates holds the fixed prompts sent to the language models
var PromptTemplates = struct {
	Discovery     string
	RewriteSystem string
	Rewrite       string
}{
	Discovery: `مهمة استخباراتية عاجلة: ابحث في الويب المفتوح عن أحدث 15 خبراً متعلقاً بـ "%s" خلال %s.
المطلوب من كل خبر:
1. الرابط المباشر (url) للخبر.
2. تجنب تكرار هذه الروابط: [%s].
3. عنوان بأسلوب عاجل قوي ومباشر (title).
4. تقرير مركز لا يتجاوز 70 كلمة (body).
5. رابط صورة مباشر (imageUrl) ينتهي بامتداد jpg أو jpeg أو png، وليس رابط صفحة.
6. التصنيف (category) ومستوى الخطورة (severity).

أعد النتيجة فقط كمصفوفة JSON بالشكل:
[{"url":"","title":"","body":"","imageUrl":"","category":"","severity":""}]`,

	RewriteSystem: `أنت محلل استخباراتي يكتب بأسلوب إخباري عسكري رصين.
قد تفكر داخل الوسمين <think> و </think>، لكن الإجابة النهائية يجب أن تكون JSON صالحاً فقط.`,

	Rewrite: `أعد صياغة الخبر التالي بالعربية الفصحى بأسلوب عاجل ومركز.
أعد كائن JSON فقط بالحقول:
- title: عنوان عاجل
- body: ملخص لا يتجاوز 120 كلمة
- category: تصنيف الخبر
- severity: مستوى الخطورة (منخفض، متوسط، مرتفع)

العنوان: %s

النص: %s`,
}

// discoveryExclusionLimit caps how many known URLs are listed in the prompt
const discoveryExclusionLimit = 30

// BuildDiscoveryPrompt renders the discovery prompt; only the last 30 known
// URLs are listed for exclusion.
func BuildDiscoveryPrompt(query, timeframe string, known []string) string {
	if len(known) > discoveryExclusionLimit {
		known = known[len(known)-discoveryExclusionLimit:]
	}
	if strings.TrimSpace(timeframe) == "" {
		timeframe = "آخر 24 ساعة"
	}
	return fmt.Sprintf(PromptTemplates.Discovery,
		escapeForPrompt(query),
		escapeForPrompt(timeframe),
		strings.Join(known, ", "))
}

// BuildRewritePrompt renders the rewrite prompt for one article
func BuildRewritePrompt(title, content string) string {
	return fmt.Sprintf(PromptTemplates.Rewrite, escapeForPrompt(title), escapeForPrompt(content))
}

// escapeForPrompt escapes special characters for use in prompts
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}
