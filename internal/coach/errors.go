package coach

import (
	"errors"

	"github.com/ritimapp/ritim/internal/remote"
)

// InviteErrorKind is the closed set of invite code failures.
type InviteErrorKind string

// Invite failure kinds.
const (
	InviteInvalid          InviteErrorKind = "invalid"
	InviteExpired          InviteErrorKind = "expired"
	InviteUsed             InviteErrorKind = "used"
	InviteRevoked          InviteErrorKind = "revoked"
	InviteLimit            InviteErrorKind = "limit"
	InviteAlreadyConnected InviteErrorKind = "already-connected"
	InviteAuthRequired     InviteErrorKind = "auth-required"
	InviteNetwork          InviteErrorKind = "network"
)

var inviteMessages = map[InviteErrorKind]string{
	InviteInvalid:          "Davet kodu geçersiz. Kodu kontrol edip tekrar dene.",
	InviteExpired:          "Davet kodunun süresi dolmuş. Koçundan yeni bir kod iste.",
	InviteUsed:             "Bu davet kodu daha önce kullanılmış.",
	InviteRevoked:          "Bu davet kodu koçun tarafından iptal edilmiş.",
	InviteLimit:            "Bu davet kodunun kullanım sınırına ulaşıldı.",
	InviteAlreadyConnected: "Zaten bu koça bağlısın.",
	InviteAuthRequired:     "Koça bağlanmak için önce giriş yapmalısın.",
	InviteNetwork:          "Bağlantı kurulamadı. İnternetini kontrol edip tekrar dene.",
}

// Message returns the Turkish message shown to the user.
func (k InviteErrorKind) Message() string {
	if msg, ok := inviteMessages[k]; ok {
		return msg
	}
	return inviteMessages[InviteNetwork]
}

// InviteError is a failed invite step.
type InviteError struct {
	Kind InviteErrorKind
	Err  error
}

func (e *InviteError) Error() string {
	return e.Kind.Message()
}

func (e *InviteError) Unwrap() error {
	return e.Err
}

// KindOf returns the invite failure kind of err, or false when err is not
// an invite failure.
func KindOf(err error) (InviteErrorKind, bool) {
	var ie *InviteError
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return "", false
}

// classify maps a backend error to an invite failure.
func classify(err error) *InviteError {
	kind := InviteNetwork
	switch {
	case errors.Is(err, remote.ErrInviteNotFound):
		kind = InviteInvalid
	case errors.Is(err, remote.ErrInviteExpired):
		kind = InviteExpired
	case errors.Is(err, remote.ErrInviteUsed):
		kind = InviteUsed
	case errors.Is(err, remote.ErrInviteRevoked):
		kind = InviteRevoked
	case errors.Is(err, remote.ErrInviteLimit):
		kind = InviteLimit
	case errors.Is(err, remote.ErrAlreadyLinked):
		kind = InviteAlreadyConnected
	}
	return &InviteError{Kind: kind, Err: err}
}
