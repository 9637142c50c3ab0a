package telegram

import (
	"github.com/tidwall/gjson"
)

// ChatType is the type of the chat a message-like update belongs to.
// The zero value AnyChat is the wildcard used when registering handlers.
type ChatType string

const (
	AnyChat        ChatType = ""
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

var chatTypes = map[string]ChatType{
	"private":    ChatPrivate,
	"group":      ChatGroup,
	"supergroup": ChatSupergroup,
	"channel":    ChatChannel,
}

func (c ChatType) String() string {
	if c == AnyChat {
		return "*"
	}
	return string(c)
}

// Incoming is the top level field of an update that carries its payload.
// AnyIncoming is the wildcard, IncomingUnsupported is what updates with no
// known field are classified as.
type Incoming string

const (
	AnyIncoming         Incoming = ""
	IncomingUnsupported Incoming = "unsupported"

	NewMessage        Incoming = "message"
	EditedMessage     Incoming = "edited_message"
	ChannelPost       Incoming = "channel_post"
	EditedChannelPost Incoming = "edited_channel_post"

	CallbackQuery      Incoming = "callback_query"
	InlineQuery        Incoming = "inline_query"
	ChosenInlineResult Incoming = "chosen_inline_result"
	ShippingQuery      Incoming = "shipping_query"
	PreCheckoutQuery   Incoming = "pre_checkout_query"
	PollUpdate         Incoming = "poll"
	PollAnswer         Incoming = "poll_answer"
	MyChatMember       Incoming = "my_chat_member"
	ChatMember         Incoming = "chat_member"
	ChatJoinRequest    Incoming = "chat_join_request"
)

// incomings is scanned in order, message-like kinds first.
var incomings = []Incoming{
	NewMessage,
	EditedMessage,
	ChannelPost,
	EditedChannelPost,
	CallbackQuery,
	InlineQuery,
	ChosenInlineResult,
	ShippingQuery,
	PreCheckoutQuery,
	PollUpdate,
	PollAnswer,
	MyChatMember,
	ChatMember,
	ChatJoinRequest,
}

// IsMessageOrPost reports whether the payload is a Message object with a chat
// and content, the only kinds content types and rules apply to.
func (i Incoming) IsMessageOrPost() bool {
	switch i {
	case NewMessage, EditedMessage, ChannelPost, EditedChannelPost:
		return true
	}
	return false
}

func (i Incoming) String() string {
	if i == AnyIncoming {
		return "*"
	}
	return string(i)
}

// Content is the category of a message. Scalar categories are recognised by
// the presence of a field, entity bound ones by the first entity of a text.
// The variant is fixed by the constructor. The zero value AnyContent is the
// wildcard.
type Content struct {
	kind     contentKind
	name     string
	field    string
	entities string
	tag      string
}

type contentKind uint8

const (
	anyKind contentKind = iota
	scalarKind
	entityKind
)

var AnyContent = Content{}

// ScalarContent describes a category recognised by the presence of field.
func ScalarContent(name, field string) Content {
	return Content{kind: scalarKind, name: name, field: field}
}

// EntityContent describes a category recognised by the first entity in
// entities being of type tag and starting at offset 0 of field.
func EntityContent(name, field, entities, tag string) Content {
	return Content{kind: entityKind, name: name, field: field, entities: entities, tag: tag}
}

var (
	ContentAnimation       = ScalarContent("animation", "animation")
	ContentAudio           = ScalarContent("audio", "audio")
	ContentCode            = EntityContent("code", "text", "entities", "code")
	ContentCommand         = EntityContent("command", "text", "entities", "bot_command")
	ContentContact         = ScalarContent("contact", "contact")
	ContentDeleteChatPhoto = ScalarContent("delete_chat_photo", "delete_chat_photo")
	ContentDocument        = ScalarContent("document", "document")
	ContentGame            = ScalarContent("game", "game")
	ContentEmail           = EntityContent("email", "text", "entities", "email")
	ContentFile            = ScalarContent("file", "file")
	ContentHashtag         = EntityContent("hashtag", "text", "entities", "hashtag")
	ContentInvoice         = ScalarContent("invoice", "invoice")
	ContentLocation        = ScalarContent("location", "location")
	ContentMention         = EntityContent("mention", "text", "entities", "mention")
	ContentNewChatPhoto    = ScalarContent("new_chat_photo", "new_chat_photo")
	ContentNewChatMembers  = ScalarContent("new_chat_members", "new_chat_members")
	ContentNewChatTitle    = ScalarContent("new_chat_title", "new_chat_title")
	ContentLeftChatMember  = ScalarContent("left_chat_member", "left_chat_member")
	ContentPhoneNumber     = EntityContent("phone_number", "text", "entities", "phone_number")
	ContentPhoto           = ScalarContent("photo", "photo")
	ContentPinnedMessage   = ScalarContent("pinned_message", "pinned_message")
	ContentPoll            = ScalarContent("poll", "poll")
	ContentSticker         = ScalarContent("sticker", "sticker")
	ContentPayment         = ScalarContent("successful_payment", "successful_payment")
	ContentText            = ScalarContent("text", "text")
	ContentURL             = EntityContent("url", "text", "entities", "url")
	ContentVenue           = ScalarContent("venue", "venue")
	ContentVideo           = ScalarContent("video", "video")
	ContentVoice           = ScalarContent("voice", "voice")
	ContentVideoNote       = ScalarContent("video_note", "video_note")
)

// Contents lists every known category in enumeration order.
var Contents = []Content{
	ContentAnimation,
	ContentAudio,
	ContentCode,
	ContentCommand,
	ContentContact,
	ContentDeleteChatPhoto,
	ContentDocument,
	ContentGame,
	ContentEmail,
	ContentFile,
	ContentHashtag,
	ContentInvoice,
	ContentLocation,
	ContentMention,
	ContentNewChatPhoto,
	ContentNewChatMembers,
	ContentNewChatTitle,
	ContentLeftChatMember,
	ContentPhoneNumber,
	ContentPhoto,
	ContentPinnedMessage,
	ContentPoll,
	ContentSticker,
	ContentPayment,
	ContentText,
	ContentURL,
	ContentVenue,
	ContentVideo,
	ContentVoice,
	ContentVideoNote,
}

// contentsByPriority holds entity bound categories first, each group in enumeration order.
var contentsByPriority = func() []Content {
	first := make([]Content, 0, len(Contents))
	var second []Content
	for _, c := range Contents {
		if c.IsEntityBound() {
			first = append(first, c)
		} else {
			second = append(second, c)
		}
	}
	return append(first, second...)
}()

// ContentByName looks a known category up by its name, e.g. "command".
func ContentByName(name string) (Content, bool) {
	for _, c := range Contents {
		if c.name == name {
			return c, true
		}
	}
	return AnyContent, false
}

func (c Content) Name() string { return c.name }

// Field is the message field the category is anchored on.
func (c Content) Field() string { return c.field }

func (c Content) IsEntityBound() bool { return c.kind == entityKind }

func (c Content) IsAny() bool { return c.kind == anyKind }

func (c Content) String() string {
	if c.IsAny() {
		return "*"
	}
	return c.name
}

// matches reports whether msg, a Message object, falls into the category.
func (c Content) matches(msg gjson.Result) bool {
	if !msg.Get(c.field).Exists() {
		return false
	}
	if !c.IsEntityBound() {
		return true
	}
	first := msg.Get(c.entities + ".0")
	if !first.Exists() {
		return false
	}
	return first.Get("offset").Int() == 0 && first.Get("type").String() == c.tag
}

// RecognizeIncoming returns the first known payload field present in u, or
// IncomingUnsupported.
func RecognizeIncoming(u Update) Incoming {
	for _, i := range incomings {
		if u.Has(string(i)) {
			return i
		}
	}
	return IncomingUnsupported
}

// RecognizeType classifies u. Chat type and content are only defined for
// message-like updates; AnyChat and AnyContent stand for "none" otherwise.
// An unknown chat type string is reported as AnyChat.
func RecognizeType(u Update) (ChatType, Incoming, Content) {
	incoming := RecognizeIncoming(u)
	if !incoming.IsMessageOrPost() {
		return AnyChat, incoming, AnyContent
	}

	msg := u.Get(string(incoming))
	chat := chatTypes[msg.Get("chat.type").String()]

	for _, c := range contentsByPriority {
		if c.matches(msg) {
			return chat, incoming, c
		}
	}
	return chat, incoming, AnyContent
}
