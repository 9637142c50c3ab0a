package telegram

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"

	"github.com/v-v-vishnevskiy/aio-telegram-bot/internal/utils"
)

// Rule matches the content value of a message: the text covered by the
// leading entity for entity bound content, otherwise the raw value of the
// content field (the text itself for text messages).
type Rule interface {
	// Priority orders rules inside a bucket, lower first.
	Priority() int
	Match(value string) bool
	// Equal reports whether two rules would accept the same handler slot.
	Equal(other Rule) bool
	String() string
}

var (
	commandPattern = regexp.MustCompile(`^/[A-Za-z0-9_]+$`)
	mentionPattern = regexp.MustCompile(`^@[A-Za-z0-9_]+$`)
)

// fold is not cached, a cases.Caser must not be shared between goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}

type ruleOptions struct {
	sensitive bool
}

type RuleOption func(*ruleOptions)

// CaseSensitive compares values as they are. Text and Contains ignore case by default.
func CaseSensitive() RuleOption {
	return func(o *ruleOptions) { o.sensitive = true }
}

// CaseInsensitive folds both sides before comparing. Command and Mention are
// case sensitive by default.
func CaseInsensitive() RuleOption {
	return func(o *ruleOptions) { o.sensitive = false }
}

func buildOptions(sensitive bool, opts []RuleOption) ruleOptions {
	o := ruleOptions{sensitive: sensitive}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type textKind int

const (
	kindText textKind = iota
	kindContains
	kindCommand
	kindMention
)

func (k textKind) String() string {
	switch k {
	case kindContains:
		return "Contains"
	case kindCommand:
		return "Command"
	case kindMention:
		return "Mention"
	default:
		return "Text"
	}
}

// TextRule backs Text, Contains, Command and Mention. The stored text is
// already folded when the rule is case insensitive.
type TextRule struct {
	kind        textKind
	text        string
	insensitive bool
}

// Text matches values equal to text, ignoring case unless CaseSensitive is given.
func Text(text string, opts ...RuleOption) *TextRule {
	return newTextRule(kindText, text, buildOptions(false, opts))
}

// Contains matches values that contain text, ignoring case unless CaseSensitive is given.
func Contains(text string, opts ...RuleOption) *TextRule {
	return newTextRule(kindContains, text, buildOptions(false, opts))
}

// Command matches a bot command such as "/start". The text must look like
// /[A-Za-z0-9_]+. A "@botname" suffix on the incoming value is ignored.
func Command(text string, opts ...RuleOption) (*TextRule, error) {
	if !commandPattern.MatchString(text) {
		return nil, errors.Wrapf(ErrInvalidRule, "command %q should correspond to '%s'", text, commandPattern)
	}
	return newTextRule(kindCommand, text, buildOptions(true, opts)), nil
}

// Mention matches a mention such as "@someone". The text must look like @[A-Za-z0-9_]+.
func Mention(text string, opts ...RuleOption) (*TextRule, error) {
	if !mentionPattern.MatchString(text) {
		return nil, errors.Wrapf(ErrInvalidRule, "mention %q should correspond to '%s'", text, mentionPattern)
	}
	return newTextRule(kindMention, text, buildOptions(true, opts)), nil
}

func MustCommand(text string, opts ...RuleOption) *TextRule {
	r, err := Command(text, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func MustMention(text string, opts ...RuleOption) *TextRule {
	r, err := Mention(text, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func newTextRule(kind textKind, text string, o ruleOptions) *TextRule {
	r := &TextRule{kind: kind, text: text, insensitive: !o.sensitive}
	if r.insensitive {
		r.text = fold(text)
	}
	return r
}

func (r *TextRule) Priority() int {
	switch r.kind {
	case kindContains:
		return PriorityContains
	case kindCommand, kindMention:
		return PriorityPattern
	default:
		return PriorityText
	}
}

func (r *TextRule) Match(value string) bool {
	if r.kind == kindCommand {
		if i := strings.IndexByte(value, '@'); i > 0 {
			value = value[:i]
		}
	}
	if r.insensitive {
		value = fold(value)
	}
	if r.kind == kindContains {
		return strings.Contains(value, r.text)
	}
	return value == r.text
}

func (r *TextRule) Equal(other Rule) bool {
	o, ok := other.(*TextRule)
	if !ok || o == nil {
		return false
	}
	return r.kind == o.kind && r.text == o.text && r.insensitive == o.insensitive
}

func (r *TextRule) String() string {
	return fmt.Sprintf("%s(%q, %t)", r.kind, r.text, r.insensitive)
}

// RegExpRule matches values whose beginning matches the pattern.
type RegExpRule struct {
	pattern string
	re      *regexp.Regexp
}

// RegExp compiles pattern anchored at the start of the value.
func RegExp(pattern string) (*RegExpRule, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidRule, "regexp %q: %s", pattern, err)
	}
	return &RegExpRule{pattern: pattern, re: re}, nil
}

func MustRegExp(pattern string) *RegExpRule {
	r, err := RegExp(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *RegExpRule) Priority() int { return PriorityRegExp }

func (r *RegExpRule) Match(value string) bool {
	return r.re.MatchString(value)
}

func (r *RegExpRule) Equal(other Rule) bool {
	o, ok := other.(*RegExpRule)
	return ok && o != nil && r.pattern == o.pattern
}

func (r *RegExpRule) String() string {
	return fmt.Sprintf("RegExp(%q)", r.pattern)
}

// PrepareRule turns the rule given at registration into a Rule. Strings
// become Command, Mention or Text depending on content; strings and integers
// for any other content become a case sensitive exact match. A nil rule is
// the catch-all and stays nil.
func PrepareRule(content Content, rule any) (Rule, error) {
	switch r := rule.(type) {
	case nil:
		return nil, nil
	case Rule:
		if v := reflect.ValueOf(r); v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, errors.Wrapf(ErrInvalidRule, "nil %T rule", r)
		}
		return r, nil
	case string:
		switch content {
		case ContentCommand:
			return Command(r)
		case ContentMention:
			return Mention(r)
		case ContentText:
			return Text(r), nil
		}
		return Text(r, CaseSensitive()), nil
	case int:
		return integerRule(content, int64(r)), nil
	case int32:
		return integerRule(content, int64(r)), nil
	case int64:
		return integerRule(content, r), nil
	}
	return nil, errors.Wrapf(ErrInvalidRule, "unsupported rule type %T", rule)
}

func integerRule(content Content, n int64) Rule {
	s := strconv.FormatInt(n, 10)
	if content == ContentText {
		return Text(s)
	}
	return Text(s, CaseSensitive())
}

func sameRule(a, b Rule) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

func rulePriority(r Rule) int {
	if r == nil {
		return PriorityCatchAll
	}
	return r.Priority()
}

// ContentValue extracts the value rules are matched against: the field of a
// scalar category, or the text covered by the first entity of an entity bound
// one (offsets count UTF-16 code units).
func ContentValue(incoming Incoming, content Content, u Update) (string, bool) {
	if !incoming.IsMessageOrPost() || content.IsAny() {
		return "", false
	}
	msg := u.Get(string(incoming))
	field := msg.Get(content.field)
	if !field.Exists() {
		return "", false
	}
	if !content.IsEntityBound() {
		return field.String(), true
	}
	entity := msg.Get(content.entities + ".0")
	if !entity.Exists() {
		return "", false
	}
	offset := int(entity.Get("offset").Int())
	length := int(entity.Get("length").Int())
	return utils.SliceUTF16(field.String(), offset, length), true
}

// IsMatch reports whether rule accepts the update classified as incoming and
// content. A nil rule always matches; a concrete rule never matches updates
// that are not messages or carry no recognised content.
func IsMatch(rule Rule, incoming Incoming, content Content, u Update) bool {
	if rule == nil {
		return true
	}
	value, ok := ContentValue(incoming, content, u)
	if !ok {
		return false
	}
	return rule.Match(value)
}
