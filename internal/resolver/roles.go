package resolver

import (
	"regexp"
	"strings"
)

// Структурные паттерны snapshot-грамматики: role-префиксы, ref-токены,
// признаки file input. Они описывают формат snapshot, а не язык интерфейса,
// и потому остаются кодом.
var (
	// Строки постов, комментариев и модальных окон: ref оттуда кликать нельзя.
	rePostLine = regexp.MustCompile(`(?i)/p/|/reel/|發佈|留言|comment|like|讚|分享|貼文|post\s|modal|彈窗`)

	// Ссылка на пост или Reel — такой ref гарантированно не DM-элемент.
	rePostLink = regexp.MustCompile(`(?i)/url:\s*[^\s]*(/p/|/reel/)`)

	// Кнопки зоны профиля и глобальной навигации: в snapshot это такие же
	// button со стрелкой-курсором, как и элементы DM-окна.
	reProfileButtons = regexp.MustCompile(`(?i)發送訊息|追蹤|類似帳號|follow|首頁|Reel|搜尋|探索|通知|新貼文|設定|選項`)

	// Прочие контролы строки ввода DM: эмодзи, голос, стикеры и сам textbox.
	reInputRowMisc = regexp.MustCompile(`(?i)mic|麥克風|voice|語音|emoji|表情|sticker|貼圖|訊息\.\.\.|message\.\.\.|textbox|placeholder`)

	reTextbox      = regexp.MustCompile(`(?i)textbox|text box`)
	reActive       = regexp.MustCompile(`\[active\]`)
	rePlaceholder  = regexp.MustCompile(`(?i)訊息\.\.\.|message\.\.\.|placeholder`)
	reInputish     = regexp.MustCompile(`(?i)input|edit|write`)
	reButtonLink   = regexp.MustCompile(`(?i)button|link`)
	reButtonRef    = regexp.MustCompile(`button.*\[ref=e\d+\]`)
	reButtonImg    = regexp.MustCompile(`(?i)button|img`)
	reIconish      = regexp.MustCompile(`(?i)button|img|graphic|icon`)
	reFileInputish = regexp.MustCompile(`(?i)\binput\b|textbox|type\s*[=:]\s*["']?file`)
	reFileLike     = regexp.MustCompile(`(?i)\bfile\b|accept\s*[=:]|image/|\.jpg|\.png|\.gif|\.webp`)
	reProfileNoise = regexp.MustCompile(`(?i)留言|讚|分享|like|comment|/p/|reel/|發佈`)
	reFollow       = regexp.MustCompile(`(?i)追蹤|follow`)
	reDmSendNoise  = regexp.MustCompile(`(?i)發送訊息|follow|追蹤|進入`)
)

// Keywords — UI-лексика ролей. Паттерны списаны с accessibility-дерева
// веб-версии Instagram (zh-TW интерфейс с английскими запасными вариантами).
// При дрейфе UI обновляются именно эти данные, а не алгоритм; наборы можно
// подменить через конфигурацию, не трогая цепочки правил.
type Keywords struct {
	// Send — лексика кнопки отправки (бумажный самолетик).
	Send *regexp.Regexp
	// AttachExact — точная метка кнопки прикрепления.
	AttachExact *regexp.Regexp
	// Attach — расширенная лексика кнопки прикрепления.
	Attach *regexp.Regexp
	// MessageButton — кнопка «отправить сообщение» в шапке профиля.
	MessageButton *regexp.Regexp
	// MessageWord — слово «сообщение» в метке поля ввода.
	MessageWord *regexp.Regexp
	// KnownInputControls — известные кнопки строки ввода: всё, что точно
	// НЕ кнопка отправки.
	KnownInputControls *regexp.Regexp
}

// DefaultKeywords возвращает лексику текущей версии внешнего UI.
func DefaultKeywords() Keywords {
	return Keywords{
		Send:               regexp.MustCompile(`(?i)send|傳送|送出|submit|paper|plane|紙飛機|飛行`),
		AttachExact:        regexp.MustCompile(`新增相片或影片`),
		Attach:             regexp.MustCompile(`(?i)新增相片或影片|photo|camera|image|gallery|attach|圖片|相片|相機|附加|媒體|plus|add|圖庫|相簿|album|media|mountain|山|sun`),
		MessageButton:      regexp.MustCompile(`(?i)message|私訊|傳送訊息|發送訊息|發送|メッセージ|send\s*message`),
		MessageWord:        regexp.MustCompile(`訊息|(?i:message)`),
		KnownInputControls: regexp.MustCompile(`(?i)選擇表情符號|語音片段|新增相片或影片|選擇 GIF 或貼圖|textbox|訊息`),
	}
}

// KeywordPattern компилирует список слов в регистронезависимую альтернативу.
// Используется для подмены наборов из конфигурации.
func KeywordPattern(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

// DefaultTable возвращает таблицу ролей со стандартной лексикой.
// headerLines/tailLines задают регионы по умолчанию: шапку профиля и хвост,
// где живет DM-окно.
func DefaultTable(headerLines, tailLines int) *Table {
	return BuildTable(headerLines, tailLines, DefaultKeywords())
}

// BuildTable собирает таблицу ролей из заданной лексики.
func BuildTable(headerLines, tailLines int, kw Keywords) *Table {
	return NewTable(
		profileMessageButton(headerLines, kw),
		messageInput(tailLines, kw),
		sendButton(tailLines, kw),
		attachButton(tailLines, kw),
		fileInput(tailLines, kw),
	)
}

// profileMessageButton — кнопка «發送訊息» в шапке профиля. Регион обязателен:
// ниже по странице есть кнопки комментариев с той же лексикой.
func profileMessageButton(headerLines int, kw Keywords) Query {
	return Query{
		Role:    RoleProfileMessageButton,
		Region:  Region{Head: headerLines},
		Exclude: []*regexp.Regexp{reProfileNoise},
		Rules: []Rule{
			{
				Name:    "message-label",
				Require: []*regexp.Regexp{kw.MessageButton},
				Anchors: []*regexp.Regexp{kw.MessageButton},
			},
			{
				// Кнопка сообщения стоит рядом с «追蹤»: если лексика не
				// совпала, берем ближайшую не-follow кнопку шапки.
				Name:    "non-follow-button",
				Require: []*regexp.Regexp{reButtonLink},
				Exclude: []*regexp.Regexp{reFollow},
				Anchors: []*regexp.Regexp{reButtonLink},
			},
		},
	}
}

// messageInput — поле ввода DM. В зоне «textbox "訊息" [ref=...]» той же
// строке часто предшествует generic-контейнер со своим ref, поэтому каждое
// правило заякорено.
func messageInput(tailLines int, kw Keywords) Query {
	return Query{
		Role:    RoleMessageInput,
		Region:  Region{Tail: tailLines},
		Exclude: []*regexp.Regexp{rePostLine},
		Rules: []Rule{
			{
				Name:    "textbox-with-label",
				Require: []*regexp.Regexp{reTextbox, kw.MessageWord},
				Anchors: []*regexp.Regexp{reTextbox, kw.MessageWord},
			},
			{
				Name:        "active-textbox",
				Require:     []*regexp.Regexp{reActive, reTextbox},
				Anchors:     []*regexp.Regexp{reTextbox},
				LineLastRef: true,
			},
			{
				Name:    "any-textbox",
				Require: []*regexp.Regexp{reTextbox},
				Exclude: []*regexp.Regexp{rePostLink},
				Anchors: []*regexp.Regexp{reTextbox},
			},
			{
				Name:    "placeholder",
				Require: []*regexp.Regexp{rePlaceholder},
				Exclude: []*regexp.Regexp{rePostLink},
				Anchors: []*regexp.Regexp{rePlaceholder},
			},
			{
				Name:    "inputish",
				Require: []*regexp.Regexp{reInputish},
				Exclude: []*regexp.Regexp{rePostLink},
				Anchors: []*regexp.Regexp{reInputish},
			},
			{
				Name:    "message-word",
				Require: []*regexp.Regexp{kw.MessageWord},
				Exclude: []*regexp.Regexp{rePostLink},
				Anchors: []*regexp.Regexp{kw.MessageWord},
			},
		},
	}
}

// sendButton — кнопка отправки в строке ввода DM. Последнее правило
// позиционное: отправка конвенционально правее всех прочих контролов строки,
// то есть последняя button-подобная ссылка после исключения известных кнопок.
func sendButton(tailLines int, kw Keywords) Query {
	return Query{
		Role:    RoleSendButton,
		Region:  Region{Tail: tailLines},
		Exclude: []*regexp.Regexp{rePostLine, reDmSendNoise},
		Rules: []Rule{
			{
				Name:    "send-label",
				Require: []*regexp.Regexp{reButtonLink, kw.Send},
				Anchors: []*regexp.Regexp{kw.Send},
			},
			{
				Name:     "rightmost-button",
				Require:  []*regexp.Regexp{reButtonRef},
				Exclude:  []*regexp.Regexp{kw.KnownInputControls},
				Anchors:  []*regexp.Regexp{reButtonRef},
				TakeLast: true,
			},
		},
	}
}

// attachButton — кнопка «新增相片或影片» в строке ввода. Сначала точная метка,
// затем расширенная лексика, последним — любой иконко-подобный элемент хвоста.
func attachButton(tailLines int, kw Keywords) Query {
	return Query{
		Role:    RoleAttachButton,
		Region:  Region{Tail: tailLines},
		Exclude: []*regexp.Regexp{rePostLine, reProfileButtons, kw.Send, reInputRowMisc},
		Rules: []Rule{
			{
				Name:    "exact-label",
				Require: []*regexp.Regexp{kw.AttachExact, reButtonImg},
				Anchors: []*regexp.Regexp{kw.AttachExact},
			},
			{
				Name:    "attach-keywords",
				Require: []*regexp.Regexp{kw.Attach},
				Anchors: []*regexp.Regexp{kw.Attach},
			},
			{
				Name:    "any-icon",
				Require: []*regexp.Regexp{reIconish},
				Anchors: []*regexp.Regexp{reIconish},
			},
		},
	}
}

// fileInput — скрытый <input type="file">: файл ставится напрямую, без
// диалога выбора.
func fileInput(tailLines int, kw Keywords) Query {
	return Query{
		Role:    RoleFileInput,
		Region:  Region{Tail: tailLines},
		Exclude: []*regexp.Regexp{rePostLine, kw.Send},
		Rules: []Rule{
			{
				Name:    "file-input",
				Require: []*regexp.Regexp{reFileInputish, reFileLike},
				Anchors: []*regexp.Regexp{reFileInputish, reFileLike},
			},
		},
	}
}
