package component

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxTokenLen is the length cap Discord enforces on component custom ids.
// Tokens are rejected at encode time rather than truncated.
const MaxTokenLen = 100

// Token modes. The mode discriminant decides whether the body is the payload
// itself or a reference to externally stored state.
const (
	modeInline    = "i"
	modeReference = "r"
)

var (
	// ErrPayloadTooLarge is returned when an inline payload would push the
	// token past MaxTokenLen. The caller must store the payload externally
	// and encode a reference instead.
	ErrPayloadTooLarge = errors.New("component: state payload too large to inline")

	// ErrMalformedToken is returned when a custom id does not match the
	// token grammar. Old tokens on already-delivered messages decode fine;
	// this only fires for ids this codec never produced.
	ErrMalformedToken = errors.New("component: malformed state token")

	// ErrUnknownHandler is returned when a decoded token names a handler id
	// that is not registered.
	ErrUnknownHandler = errors.New("component: unknown handler")
)

// Token is the decoded form of a control's custom id.
//
// Inline tokens carry their payload directly; reference tokens carry only the
// id of externally stored state (payload too large for the custom id cap, or
// sensitive, e.g. a secret's storage id).
type Token struct {
	Handler string
	Inline  json.RawMessage
	RefID   string
}

// IsReference reports whether the token's payload lives outside the token.
func (t Token) IsReference() bool {
	return t.RefID != ""
}

// EncodeInline serializes payload into a self-contained token for handler.
// Encoding is deterministic: the same payload always yields the same token.
func EncodeInline(handler string, payload any) (string, error) {
	if err := checkHandlerID(handler); err != nil {
		return "", err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("component: marshal state payload: %w", err)
	}
	token := handler + ":" + modeInline + ":" + base64.RawURLEncoding.EncodeToString(body)
	if len(token) > MaxTokenLen {
		return "", fmt.Errorf("%w: %d chars over the %d limit", ErrPayloadTooLarge, len(token)-MaxTokenLen, MaxTokenLen)
	}
	return token, nil
}

// EncodeReference produces a token pointing at externally stored state.
func EncodeReference(handler, refID string) (string, error) {
	if err := checkHandlerID(handler); err != nil {
		return "", err
	}
	if refID == "" || strings.Contains(refID, ":") {
		return "", fmt.Errorf("component: invalid reference id %q", refID)
	}
	token := handler + ":" + modeReference + ":" + refID
	if len(token) > MaxTokenLen {
		return "", fmt.Errorf("%w: reference id too long", ErrPayloadTooLarge)
	}
	return token, nil
}

// Decode parses a custom id back into its handler id and payload or
// reference. It does not consult the handler registry; see Registry.Decode
// for registry-checked access.
func Decode(token string) (Token, error) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return Token{}, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}

	switch parts[1] {
	case modeInline:
		body, err := base64.RawURLEncoding.DecodeString(parts[2])
		if err != nil {
			return Token{}, fmt.Errorf("%w: bad inline body: %q", ErrMalformedToken, token)
		}
		if !json.Valid(body) {
			return Token{}, fmt.Errorf("%w: inline body is not JSON: %q", ErrMalformedToken, token)
		}
		return Token{Handler: parts[0], Inline: body}, nil
	case modeReference:
		return Token{Handler: parts[0], RefID: parts[2]}, nil
	default:
		return Token{}, fmt.Errorf("%w: unknown mode %q", ErrMalformedToken, parts[1])
	}
}

func checkHandlerID(handler string) error {
	if handler == "" || strings.Contains(handler, ":") {
		return fmt.Errorf("component: invalid handler id %q", handler)
	}
	return nil
}
