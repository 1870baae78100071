package access

import (
	"fmt"
	"regexp"
	"strings"
)

// Context carries every field a binding's key/keyhole templates may
// reference. It is assembled once per request from the binding, the AMQP
// delivery, and (when evaluating a procedure or namespace rather than a
// raw delivery) the resolved tree node.
type Context struct {
	Exchange     string
	Queue        string
	RK           string // consumer routing key this binding declared
	MsgRK        string // routing key the incoming message actually carries
	DeliveryInfo map[string]string
	ReplyTo      string

	FullName      string
	LocalName     string
	ParentmodName string
	Doc           string
	Tags          map[string]string
	Help          string
	Type          string // "procedure" or "namespace"
}

// split returns the dot-separated segments of a dotted name, and reversed
// the same segments in reverse order - field exposes both as comma-joined
// strings since key/keyhole templates are plain string substitutions.
func split(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, ".")
}

func reversed(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[len(parts)-1-i] = p
	}
	return out
}

func (c Context) field(name string) (string, bool) {
	switch name {
	case "exchange":
		return c.Exchange, true
	case "queue":
		return c.Queue, true
	case "rk":
		return c.RK, true
	case "rk_split":
		return strings.Join(split(c.RK), ","), true
	case "rk_revsplit":
		return strings.Join(reversed(split(c.RK)), ","), true
	case "msg_rk":
		return c.MsgRK, true
	case "msg_rk_split":
		return strings.Join(split(c.MsgRK), ","), true
	case "msg_rk_revsplit":
		return strings.Join(reversed(split(c.MsgRK)), ","), true
	case "delivery_info":
		return fmt.Sprint(c.DeliveryInfo), true
	case "reply_to":
		return c.ReplyTo, true
	case "full_name":
		return c.FullName, true
	case "local_name":
		return c.LocalName, true
	case "parentmod_name":
		return c.ParentmodName, true
	case "split_name":
		return strings.Join(split(c.FullName), ","), true
	case "doc":
		return c.Doc, true
	case "tags":
		return fmt.Sprint(c.Tags), true
	case "help":
		return c.Help, true
	case "type":
		return c.Type, true
	default:
		return "", false
	}
}

var fieldPattern = regexp.MustCompile(`\{([a-zA-Z_]+)\}`)

// UnresolvedFieldError reports a {field} placeholder a Context can't
// resolve. This is a configuration error, not a denial.
type UnresolvedFieldError struct {
	Template string
	Field    string
}

func (e *UnresolvedFieldError) Error() string {
	return fmt.Sprintf("unresolved access-pattern field %q in template %q", e.Field, e.Template)
}

// Render substitutes every {field} placeholder in template from ctx.
func Render(ctx Context, template string) (string, error) {
	var outerErr error
	rendered := fieldPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		val, ok := ctx.field(name)
		if !ok {
			outerErr = &UnresolvedFieldError{Template: template, Field: name}
			return match
		}
		return val
	})
	if outerErr != nil {
		return "", outerErr
	}
	return rendered, nil
}

// Admit renders key and keyhole, then searches for the keyhole regexp
// inside the rendered key.
func Admit(ctx Context, keyPattern, keyholePattern string) (bool, error) {
	key, err := Render(ctx, keyPattern)
	if err != nil {
		return false, err
	}
	keyhole, err := Render(ctx, keyholePattern)
	if err != nil {
		return false, err
	}
	re, err := regexp.Compile(keyhole)
	if err != nil {
		return false, fmt.Errorf("invalid keyhole pattern %q: %w", keyholePattern, err)
	}
	return re.MatchString(key), nil
}
