package stack

import (
	"fmt"

	"etherstack/pkg/phy"
)

// Provider identifies which layer raised an error event.
type Provider uint8

const (
	ProviderPHY Provider = iota
	ProviderDatalink
	ProviderARP
	ProviderIP
	ProviderICMP
	ProviderApplication
)

// String returns the provider name.
func (p Provider) String() string {
	switch p {
	case ProviderPHY:
		return "phy"
	case ProviderDatalink:
		return "datalink"
	case ProviderARP:
		return "arp"
	case ProviderIP:
		return "ip"
	case ProviderICMP:
		return "icmp"
	case ProviderApplication:
		return "application"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// Code classifies a recoverable fault.
type Code uint8

const (
	// CodeBufferExhausted: received frames were dropped because no free
	// receive buffer was available. The stack keeps running.
	CodeBufferExhausted Code = iota

	// CodeAddressResolutionFailed: an ARP request went unanswered and the
	// packet queued on it was discarded.
	CodeAddressResolutionFailed
)

// String returns the code name.
func (c Code) String() string {
	switch c {
	case CodeBufferExhausted:
		return "buffer-exhausted"
	case CodeAddressResolutionFailed:
		return "address-resolution-failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ErrorEvent is one recoverable fault, published to subscribers and not
// retained. The stack owns no logging policy; a host application
// subscribes and logs or alerts as it sees fit.
type ErrorEvent struct {
	Provider Provider
	Code     Code
	Cause    error
}

// String returns the event in provider/code/cause form.
func (e ErrorEvent) String() string {
	return fmt.Sprintf("%s/%s/%v", e.Provider, e.Code, e.Cause)
}

// LinkEvent reports a link-state transition observed after a PHY
// interrupt.
type LinkEvent struct {
	Status phy.LinkStatus
}

// errorSender fans an event out to its subscribers. Invocation order is
// unspecified and subscribers must not block; they run on the foreground
// context.
type errorSender struct {
	subs []func(ErrorEvent)
}

func (s *errorSender) subscribe(fn func(ErrorEvent)) {
	s.subs = append(s.subs, fn)
}

func (s *errorSender) publish(ev ErrorEvent) {
	for _, fn := range s.subs {
		fn(ev)
	}
}

type linkSender struct {
	subs []func(LinkEvent)
}

func (s *linkSender) subscribe(fn func(LinkEvent)) {
	s.subs = append(s.subs, fn)
}

func (s *linkSender) publish(ev LinkEvent) {
	for _, fn := range s.subs {
		fn(ev)
	}
}
