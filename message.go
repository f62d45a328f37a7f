package courier

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/casualjim/courier/pkg/reflectx"
)

// Message is anything that travels through the broker. Its Kind is derived from
// its dynamic Go type.
type Message any

// Kind identifies a message type. Two messages have the same Kind if and only if
// they have the same Go type.
//
// A Kind is the qualified name of the type. Types declared inside functions can
// share a qualified name with another type of the same package; the second one
// seen gets a "#2" suffix, the third "#3" and so on.
type Kind string

// KindOf returns the Kind of messages of type M.
func KindOf[M any]() Kind {
	return kinds.of(reflect.TypeFor[M]())
}

// KindOfMessage returns the Kind of msg, or "" when msg is nil.
func KindOfMessage(msg Message) Kind {
	if msg == nil {
		return ""
	}
	return kinds.of(reflect.TypeOf(msg))
}

var kinds = &kindTable{names: make(map[Kind]reflect.Type)}

// kindTable interns one Kind per reflect.Type.
type kindTable struct {
	byType sync.Map // reflect.Type -> Kind

	mu    sync.Mutex
	names map[Kind]reflect.Type
}

func (k *kindTable) of(t reflect.Type) Kind {
	if kind, ok := k.byType.Load(t); ok {
		return kind.(Kind)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if kind, ok := k.byType.Load(t); ok {
		return kind.(Kind)
	}

	base := Kind(reflectx.QualifiedName(t))
	kind := base
	for n := 2; ; n++ {
		if _, taken := k.names[kind]; !taken {
			break
		}
		kind = Kind(fmt.Sprintf("%s#%d", base, n))
	}
	k.names[kind] = t
	k.byType.Store(t, kind)
	return kind
}

// AnyRequest is satisfied by every request, regardless of its result type.
type AnyRequest interface {
	requestSeq() uint64
	bindRequest(seq uint64)
}

// Request is a message that expects exactly one result of type T. It is delivered
// to a single subscriber.
//
// Requests are pointers to structs that embed Expects[T]:
//
//	type Detect struct {
//		courier.Expects[int]
//		Frame []byte
//	}
//
//	promise, err := courier.Send[int](ctx, broker, &Detect{Frame: frame})
type Request[T any] interface {
	AnyRequest
	expects(T)
}

// Expects marks a struct as a request with result type T. Embed it by value.
// The broker stamps each sent instance with a sequence number so that a later
// Complete finds the right promise; a request instance should be sent once.
type Expects[T any] struct {
	seq uint64
}

func (e *Expects[T]) requestSeq() uint64     { return e.seq }
func (e *Expects[T]) bindRequest(seq uint64) { e.seq = seq }
func (*Expects[T]) expects(T)                {}

// Notification is a fire-and-forget message delivered to every subscriber of its
// kind.
type Notification interface {
	notification()
}

// Notice marks a struct as a notification. Embed it by value.
//
//	type Tick struct {
//		courier.Notice
//		Time int
//	}
type Notice struct{}

func (Notice) notification() {}
