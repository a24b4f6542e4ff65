package domain

import "github.com/asynkron/protoactor-go/actor"

type ActorRef actor.PID

// ActorRequest is carried by every request message. ReplyTo overrides the
// envelope sender so responses can be routed through intermediary actors.
type ActorRequest interface {
	ReplyTo() *ActorRef
}

// ActorResponse is carried by every response message.
type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}
