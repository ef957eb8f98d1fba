package i18n

// ZhCNMessages 简体中文消息
// ZhCNMessages Simplified Chinese message catalog
var ZhCNMessages = map[string]string{
	"app.title": "图书馆风险助手",

	"welcome.heading":  "图书馆风险助手",
	"welcome.subtitle": "描述图书馆遇到的问题，获取风险分类与建议方案。",
	"welcome.login":    "登录",
	"welcome.signup":   "注册",

	"auth.name":            "姓名",
	"auth.email":           "邮箱",
	"auth.password":        "密码",
	"auth.submit":          "提交",
	"auth.connect_error":   "无法连接服务器",
	"login.title":          "登录",
	"login.pending":        "正在登录...",
	"login.failed":         "登录失败",
	"signup.title":         "注册",
	"signup.pending":       "正在创建账号...",
	"signup.failed":        "注册失败",
	"auth.fields_required": "所有字段均为必填",

	"chat.greeting":      "你好 %s！👋\n我是你的图书馆风险管理助手 📚\n告诉我任何问题，我会帮你分类并给出解决方案。",
	"chat.placeholder":   "描述一个问题...（Enter 发送）",
	"chat.typing":        "正在输入",
	"chat.connect_error": "抱歉，无法连接服务器",
	"chat.error":         "抱歉，发生错误",
	"chat.confidence":    "置信度 %.1f%%",
	"chat.busy":          "仍在等待上一条回复",
	"chat.you":           "你",
	"chat.bot":           "助手",

	"history.title":         "问题历史",
	"history.loading":       "加载中...",
	"history.empty":         "暂无记录",
	"history.failed":        "历史加载失败",
	"history.clear_confirm": "确定要清空历史吗？",
	"history.clear_failed":  "清空历史失败",
	"history.solutions":     "解决方案",

	"status.ready":             "就绪",
	"status.waiting":           "等待回复...",
	"status.backend_ok":        "后端在线",
	"status.backend_down":      "后端不可达",
	"status.model_unavailable": "分类模型不可用",
	"status.signed_in_as":      "已登录：%s",
	"status.anonymous":         "未登录",

	"repl.help":        "命令：/login /signup /history /clear /logout /status /help /quit",
	"repl.not_in_chat": "请先登录或注册（/login、/signup）",
	"repl.bye":         "再见",
}
