package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PeterKahenya/rapt/internal/domain"
)

// Kind — закрытое перечисление типов socket-сообщений.
type Kind string

const (
	KindOnline   Kind = "online"   // выставляется реестром при подключении
	KindOffline  Kind = "offline"  // выставляется реестром при отключении
	KindChat     Kind = "chat"     // новое сообщение, persist + broadcast
	KindRead     Kind = "read"     // пометить сообщение прочитанным
	KindReading  Kind = "reading"  // пользователь листает чат
	KindAway     Kind = "away"     // пользователь онлайн, но не в чате
	KindTyping   Kind = "typing"   // клавиатура поднята / курсор в поле ввода
	KindThinking Kind = "thinking" // клавиатура поднята, но давно не печатает
)

var (
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrUnknownKind     = errors.New("unknown message kind")
	ErrServerOnlyKind  = errors.New("kind is not client-sendable")
	ErrPayloadRequired = errors.New("payload required for kind")
)

func (k Kind) valid() bool {
	switch k {
	case KindOnline, KindOffline, KindChat, KindRead,
		KindReading, KindAway, KindTyping, KindThinking:
		return true
	}
	return false
}

// ClientSendable: online/offline эмитит только сервер; с клиента это
// protocol violation.
func (k Kind) ClientSendable() bool {
	return k.valid() && k != KindOnline && k != KindOffline
}

func (k Kind) needsPayload() bool {
	return k == KindChat || k == KindRead
}

// Envelope — единица протокола в обе стороны.
// Timestamp ставится сервером при encode, клиентскому не доверяем.
type Envelope struct {
	Kind      Kind            `json:"kind"`
	User      domain.Profile  `json:"user"`
	Obj       json.RawMessage `json:"obj,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ChatPayload — входящий obj для kind=chat.
type ChatPayload struct {
	Message string `json:"message"`
	Media   []struct {
		Link     string `json:"link"`
		FileType string `json:"file_type"`
	} `json:"media,omitempty"`
}

// ReadPayload — входящий obj для kind=read.
type ReadPayload struct {
	ID string `json:"id"`
}

// Decode разбирает входящий кадр. Протокол строгий: неизвестный kind,
// битый JSON и отсутствующий обязательный payload — ошибка декодирования,
// а не молчаливый пропуск.
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if !env.Kind.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
	if !env.Kind.ClientSendable() {
		return nil, fmt.Errorf("%w: %q", ErrServerOnlyKind, env.Kind)
	}
	if env.Kind.needsPayload() && emptyObj(env.Obj) {
		return nil, fmt.Errorf("%w: %q", ErrPayloadRequired, env.Kind)
	}
	return &env, nil
}

// Encode сериализует исходящий кадр и ставит серверный timestamp.
func Encode(env Envelope) ([]byte, error) {
	env.Timestamp = time.Now().UTC()
	return json.Marshal(env)
}

func emptyObj(obj json.RawMessage) bool {
	return len(obj) == 0 || bytes.Equal(bytes.TrimSpace(obj), []byte("null"))
}

func marshalObj(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
