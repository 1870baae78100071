package methodtree

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gnosek/mtrpc/pkg/access"
	"github.com/gnosek/mtrpc/pkg/protocol"
)

// Reserved access-related parameter names. A Handler may declare that it
// wants any subset of these; they are never part of the signature shown to
// clients.
const (
	AccessDictParam         = "_access_dict"
	AccessKeyPatternParam   = "_access_key_patt"
	AccessKeyholePattParam  = "_access_keyhole_patt"
)

func isReservedParam(name string) bool {
	return name == AccessDictParam || name == AccessKeyPatternParam || name == AccessKeyholePattParam
}

// Param describes one entry of a procedure's formatted signature.
type Param struct {
	Name       string
	HasDefault bool
	Default    any
}

func (p Param) reserved() bool { return isReservedParam(p.Name) }

// ArgSpec is the explicit, author-declared signature of a Handler. The
// original implementation discovers this by inspecting the callable at
// wrap time; here the declaration is made explicit instead, since every
// Handler has the same uniform shape.
type ArgSpec struct {
	// Params lists named parameters in declaration order, required ones
	// first, then ones with defaults. Required parameters must be passed
	// positionally; a parameter with a default may be passed by position
	// or by keyword. Reserved access
	// parameter entries (see the *Param constants) may appear, but only
	// after every public parameter.
	Params []Param
	// Varargs, if non-empty, names a trailing variadic positional
	// parameter (Python's *args).
	Varargs string
	// VarKwargs, if non-empty, names a trailing variadic keyword
	// parameter (Python's **kwargs).
	VarKwargs string
}

func (s ArgSpec) wantsAccess(name string) bool {
	for _, p := range s.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (s ArgSpec) validateOrder() error {
	seenPublic := false
	seenReserved := false
	for _, p := range s.Params {
		if p.reserved() {
			seenReserved = true
			continue
		}
		seenPublic = true
		if seenReserved {
			return fmt.Errorf("access-related parameter appears before public parameter %q", p.Name)
		}
	}
	_ = seenPublic
	return nil
}

func (s ArgSpec) publicParams() []Param {
	out := make([]Param, 0, len(s.Params))
	for _, p := range s.Params {
		if !p.reserved() {
			out = append(out, p)
		}
	}
	return out
}

// Format renders the signature the way it is shown to clients: reserved
// access parameters are never included.
func (s ArgSpec) Format() string {
	var parts []string
	for _, p := range s.publicParams() {
		if p.HasDefault {
			parts = append(parts, fmt.Sprintf("%s=%v", p.Name, p.Default))
		} else {
			parts = append(parts, p.Name)
		}
	}
	if s.Varargs != "" {
		parts = append(parts, "*"+s.Varargs)
	}
	if s.VarKwargs != "" {
		parts = append(parts, "**"+s.VarKwargs)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// hasMutableDefault reports whether v is a mutable container ([]any or
// map[string]any; other slice, map and pointer types are not detected) -
// the default-value audit warns at wrap time for these.
func hasMutableDefault(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return true
	default:
		return false
	}
}

// Call is handed to a Handler at invocation time. Params/KwParams are
// validated against the procedure's ArgSpec before the Handler runs.
type Call struct {
	Params   []json.RawMessage
	KwParams map[string]json.RawMessage
	Access   access.Context

	// AccessDict, AccessKeyPattern, AccessKeyholePattern are populated
	// only when the procedure's ArgSpec requested the matching reserved
	// parameter.
	AccessDict           map[string]string
	AccessKeyPattern     string
	AccessKeyholePattern string
}

// Handler is the uniform call surface every procedure is wrapped into.
type Handler func(ctx context.Context, call *Call) (any, error)

// AuthorizeFunc signals refusal by returning a non-nil error; Invoke
// maps any error here to AccessDenied.
type AuthorizeFunc func(ctx access.Context) error

// Procedure is a wrapped callable.
type Procedure struct {
	LocalName string
	FullName  string
	Spec      ArgSpec
	Doc       string
	Tags      map[string]string
	ReadOnly  bool
	Authorize AuthorizeFunc

	handler Handler
	warn    func(string)
}

// Signature returns the client-visible formatted signature.
func (p *Procedure) Signature() string { return p.Spec.Format() }

// Wrap binds fn into a Procedure, running the signature-normalization and
// default-value audit steps. If a warn sink was attached (withWarn) and
// the procedure isn't tagged suppress_mutable_arg_warning, it is called
// once with a diagnostic message for each parameter with a mutable default.
func Wrap(localName string, fn Handler, spec ArgSpec, opts ...Option) (*Procedure, error) {
	if err := spec.validateOrder(); err != nil {
		return nil, fmt.Errorf("procedure %q: %w", localName, err)
	}

	p := &Procedure{
		LocalName: localName,
		FullName:  localName,
		Spec:      spec,
		Tags:      map[string]string{},
		handler:   fn,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.warn != nil && p.Tags["suppress_mutable_arg_warning"] == "" {
		for _, param := range spec.publicParams() {
			if param.HasDefault && hasMutableDefault(param.Default) {
				p.warn(fmt.Sprintf("procedure %q: parameter %q has a mutable default value", localName, param.Name))
			}
		}
	}

	return p, nil
}

// Option configures a Procedure at Wrap time.
type Option func(*Procedure)

func WithDoc(doc string) Option { return func(p *Procedure) { p.Doc = doc } }

func WithTags(tags map[string]string) Option {
	return func(p *Procedure) {
		for k, v := range tags {
			p.Tags[k] = v
		}
	}
}

func WithReadOnly() Option { return func(p *Procedure) { p.ReadOnly = true } }

func WithAuthorize(fn AuthorizeFunc) Option { return func(p *Procedure) { p.Authorize = fn } }

// withWarn is an internal option attaching the mutable-default diagnostic
// sink; not exported because it's not part of a procedure author's public
// contract. Build does not attach one, so without it the audit is silent.
func withWarn(fn func(string)) Option { return func(p *Procedure) { p.warn = fn } }

// Invoke runs the invocation contract: strip unwanted access kwargs,
// validate the remaining arguments against the signature, then call the
// real handler.
func (p *Procedure) Invoke(ctx context.Context, call *Call) (any, error) {
	if p.Authorize != nil {
		if err := p.Authorize(call.Access); err != nil {
			return nil, &protocol.AccessDeniedError{Reason: fmt.Sprintf("%s: %s", p.FullName, err.Error())}
		}
	}

	if !p.Spec.wantsAccess(AccessDictParam) {
		call.AccessDict = nil
	}
	if !p.Spec.wantsAccess(AccessKeyPatternParam) {
		call.AccessKeyPattern = ""
	}
	if !p.Spec.wantsAccess(AccessKeyholePattParam) {
		call.AccessKeyholePattern = ""
	}

	if err := p.validateArgs(call); err != nil {
		return nil, err
	}

	return p.handler(ctx, call)
}

func (p *Procedure) validateArgs(call *Call) error {
	public := p.Spec.publicParams()

	required := 0
	for _, param := range public {
		if !param.HasDefault {
			required++
		}
	}

	if len(call.Params) < required {
		return &protocol.BadArgumentsError{Method: p.FullName, Signature: p.Signature(),
			Reason: fmt.Sprintf("expected at least %d positional argument(s), got %d", required, len(call.Params))}
	}
	if p.Spec.Varargs == "" && len(call.Params) > len(public) {
		return &protocol.BadArgumentsError{Method: p.FullName, Signature: p.Signature(),
			Reason: fmt.Sprintf("expected at most %d positional argument(s), got %d", len(public), len(call.Params))}
	}

	if p.Spec.VarKwargs == "" {
		known := make(map[string]bool, len(public))
		for _, param := range public {
			known[param.Name] = true
		}
		for k := range call.KwParams {
			if !known[k] {
				return &protocol.BadArgumentsError{Method: p.FullName, Signature: p.Signature(),
					Reason: fmt.Sprintf("unexpected keyword argument %q", k)}
			}
		}
	}

	// A parameter satisfied by both position and keyword is ambiguous.
	for i, param := range public {
		if i < len(call.Params) {
			if _, dup := call.KwParams[param.Name]; dup {
				return &protocol.BadArgumentsError{Method: p.FullName, Signature: p.Signature(),
					Reason: fmt.Sprintf("multiple values for argument %q", param.Name)}
			}
		}
	}

	return nil
}
