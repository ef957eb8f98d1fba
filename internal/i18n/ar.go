package i18n

// ArMessages 阿拉伯语消息（原服务语言）
// ArMessages Arabic message catalog (the service's native language)
var ArMessages = map[string]string{
	"app.title": "مساعد مخاطر المكتبات",

	"welcome.heading":  "مساعد مخاطر المكتبات",
	"welcome.subtitle": "اكتب أي مشكلة في مكتبتك لتحصل على تصنيفها والحلول المقترحة.",
	"welcome.login":    "تسجيل الدخول",
	"welcome.signup":   "إنشاء حساب",

	"auth.name":            "الاسم",
	"auth.email":           "البريد الإلكتروني",
	"auth.password":        "كلمة المرور",
	"auth.submit":          "إرسال",
	"auth.connect_error":   "خطأ في الاتصال بالسيرفر",
	"login.title":          "تسجيل الدخول",
	"login.pending":        "جاري تسجيل الدخول...",
	"login.failed":         "فشل تسجيل الدخول",
	"signup.title":         "إنشاء حساب",
	"signup.pending":       "جاري إنشاء الحساب...",
	"signup.failed":        "فشل إنشاء الحساب",
	"auth.fields_required": "جميع الحقول مطلوبة",

	"chat.greeting":      "مرحباً %s! 👋\nأنا مساعدك في إدارة مخاطر المكتبات 📚\nاكتب لي أي مشكلة وسأساعدك في تصنيفها وإيجاد الحلول.",
	"chat.placeholder":   "اكتب مشكلتك هنا...",
	"chat.typing":        "يكتب",
	"chat.connect_error": "عذراً، لا يمكن الاتصال بالسيرفر",
	"chat.error":         "عذراً، حدث خطأ",
	"chat.confidence":    "نسبة الثقة %.1f%%",
	"chat.busy":          "بانتظار الرد السابق",
	"chat.you":           "أنت",
	"chat.bot":           "المساعد",

	"history.title":         "سجل المشاكل",
	"history.loading":       "جاري التحميل...",
	"history.empty":         "لا توجد مشاكل مسجلة بعد",
	"history.failed":        "خطأ في تحميل السجل",
	"history.clear_confirm": "هل أنت متأكد من مسح السجل؟",
	"history.clear_failed":  "خطأ في مسح السجل",
	"history.solutions":     "الحلول",

	"status.ready":             "جاهز",
	"status.waiting":           "بانتظار الرد...",
	"status.backend_ok":        "الخادم متصل",
	"status.backend_down":      "الخادم غير متاح",
	"status.model_unavailable": "النموذج غير متاح",
	"status.signed_in_as":      "مسجل باسم %s",
	"status.anonymous":         "غير مسجل",

	"repl.yes_no":      "[y/N]",
	"repl.not_in_chat": "سجل الدخول أو أنشئ حساباً أولاً (/login, /signup)",
	"repl.bye":         "مع السلامة",
}
