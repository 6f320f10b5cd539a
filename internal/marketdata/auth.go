package marketdata

import (
	"fmt"

	"github.com/rickgao/tradestream/internal/connection"
)

// Provider error codes.
const (
	CodeInvalidSyntax        = 400
	CodeNotAuthenticated     = 401
	CodeAuthFailed           = 402
	CodeAlreadyAuthenticated = 403
	CodeAuthTimeout          = 404
	CodeSymbolLimit          = 405
	CodeConnectionLimit      = 406
	CodeSlowClient           = 407
	CodeInsufficientSub      = 409
	CodeInternal             = 500
)

// ProviderError is an error frame reported by the provider.
type ProviderError struct {
	Code int
	Msg  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Msg)
}

// Unwrap maps authentication codes to connection.ErrAuthFailed.
func (e *ProviderError) Unwrap() error {
	switch e.Code {
	case CodeNotAuthenticated, CodeAuthFailed, CodeAuthTimeout, CodeConnectionLimit, CodeInsufficientSub:
		return connection.ErrAuthFailed
	}
	return nil
}

// Authenticator performs the key/secret handshake. It implements
// connection.Authenticator.
type Authenticator struct {
	Key    string
	Secret string
}

// AuthFrame implements connection.Authenticator.
func (a Authenticator) AuthFrame() connection.ControlFrame {
	return connection.ControlFrame{
		Action: "auth",
		Key:    a.Key,
		Secret: a.Secret,
	}
}

// CheckAuth implements connection.Authenticator. A success frame with msg
// "authenticated" completes the handshake; an error frame fails it.
func (a Authenticator) CheckAuth(payload any) (bool, error) {
	frames, ok := payload.(Frames)
	if !ok {
		return false, nil
	}
	for _, f := range frames {
		switch v := f.(type) {
		case Success:
			if v.Msg == "authenticated" {
				return true, nil
			}
		case Error:
			return false, &ProviderError{Code: v.Code, Msg: v.Msg}
		}
	}
	return false, nil
}
