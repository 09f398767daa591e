package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VarResolver resolves {{var}} placeholders in strings and var maps.
// It supports built-ins: {{$timestamp}}, {{$uuid}} and {{$runid}}.
//
// This lives in domain because it does not depend on YAML/FS/exec.
type VarResolver struct {
	now     func() time.Time
	newUUID func() (string, error)
}

// VarResolverOption configures VarResolver.
type VarResolverOption func(*VarResolver)

// WithNow overrides the clock (useful for tests).
func WithNow(now func() time.Time) VarResolverOption {
	return func(r *VarResolver) { r.now = now }
}

// WithUUID overrides UUID generation (useful for tests).
func WithUUID(gen func() (string, error)) VarResolverOption {
	return func(r *VarResolver) { r.newUUID = gen }
}

func NewVarResolver(opts ...VarResolverOption) *VarResolver {
	r := &VarResolver{
		now:     time.Now,
		newUUID: newUUID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RuntimeResolver caches built-ins for a single resolution session (one job)
// so repeated {{$uuid}} across multiple fields stays consistent.
type RuntimeResolver struct {
	base     Vars
	builtins Vars
	inner    *VarResolver
}

// NewRuntime snapshots vars and built-ins for one job resolution. runID is
// exposed as {{$runid}}.
func (r *VarResolver) NewRuntime(vars Vars, runID string) (*RuntimeResolver, error) {
	ts := strconv.FormatInt(r.now().Unix(), 10)

	u, err := r.newUUID()
	if err != nil {
		return nil, &OpError{
			Op:   "vars.builtins.uuid",
			Kind: KindExecution,
			Err:  err,
		}
	}

	baseCopy := Vars{}
	for k, v := range vars {
		baseCopy[k] = v
	}

	return &RuntimeResolver{
		base: baseCopy,
		builtins: Vars{
			"$timestamp": ts,
			"$uuid":      u,
			"$runid":     runID,
		},
		inner: r,
	}, nil
}

// ResolveString resolves placeholders in a string.
// Supported tokens: {{some_var}}, {{$timestamp}}, {{$uuid}}, {{$runid}}.
func (rr *RuntimeResolver) ResolveString(s string) (string, error) {
	return rr.inner.resolveStringWith(rr.base, rr.builtins, s)
}

// ResolveStrings resolves placeholders in each element of a list.
func (rr *RuntimeResolver) ResolveStrings(in []string) ([]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		rv, err := rr.ResolveString(s)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, nil
}

// ResolveVars resolves placeholders in every value of a var map. Keys are
// kept literal. Substitution is single-pass: substituted values are not
// scanned again.
func (rr *RuntimeResolver) ResolveVars(vars Vars) (Vars, error) {
	if vars == nil {
		return Vars{}, nil
	}
	out := make(Vars, len(vars))
	for k, v := range vars {
		rv, err := rr.ResolveString(v)
		if err != nil {
			return nil, fmt.Errorf("var %q: %w", k, err)
		}
		out[k] = rv
	}
	return out, nil
}

func (r *VarResolver) resolveStringWith(vars Vars, builtins Vars, s string) (string, error) {
	// Fast path: no token start.
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s) + 16)

	for i := 0; i < len(s); {
		// Look for "{{"
		if i+1 < len(s) && s[i] == '{' && s[i+1] == '{' {
			start := i + 2

			// Find "}}"
			end := strings.Index(s[start:], "}}")
			if end < 0 {
				return "", &OpError{
					Op:   "vars.resolve",
					Kind: KindInvalidConfig,
					Err:  errors.New("unclosed placeholder"),
				}
			}
			end = start + end

			name := strings.TrimSpace(s[start:end])
			if name == "" {
				return "", &OpError{
					Op:   "vars.resolve",
					Kind: KindInvalidConfig,
					Err:  errors.New("empty placeholder"),
				}
			}

			val, ok := builtins[name]
			if !ok {
				val, ok = vars[name]
			}
			if !ok {
				return "", &OpError{
					Op:   "vars.resolve",
					Kind: KindMissingVar,
					Err:  fmt.Errorf("missing variable: %s", name),
				}
			}

			b.WriteString(val)
			i = end + 2
			continue
		}

		b.WriteByte(s[i])
		i++
	}

	return b.String(), nil
}

func newUUID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
