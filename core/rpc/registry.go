package rpc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	ErrServiceUnknown = errors.New("rpc: service not registered")
	ErrMethodUnknown  = errors.New("rpc: method not registered")
	ErrNoMethods      = errors.New("rpc: service exposes no usable methods")
)

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// method is one callable endpoint on a registered service.
type method struct {
	fn        reflect.Value
	argType   reflect.Type // element type of the *Arg parameter
	replyType reflect.Type
}

type service struct {
	name     string
	receiver reflect.Value
	methods  map[string]*method
}

// Registry maps service and method names to receivers. Methods must
// follow the signature
//
//	func (s *S) Name(ctx context.Context, arg *Arg) (*Reply, error)
//
// Exported methods with any other shape are skipped.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*service
}

func NewRegistry() *Registry {
	return &Registry{services: make(map[string]*service)}
}

// Register scans receiver for conforming methods and exposes them
// under name.
func (r *Registry) Register(name string, receiver any) error {
	svc := &service{
		name:     name,
		receiver: reflect.ValueOf(receiver),
		methods:  make(map[string]*method),
	}

	rt := reflect.TypeOf(receiver)
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		if m.PkgPath != "" {
			continue
		}
		mt := m.Type
		if mt.NumIn() != 3 || mt.NumOut() != 2 {
			continue
		}
		if !mt.In(1).Implements(contextType) {
			continue
		}
		if mt.In(2).Kind() != reflect.Pointer || mt.Out(0).Kind() != reflect.Pointer {
			continue
		}
		if mt.Out(1) != errorType {
			continue
		}
		svc.methods[m.Name] = &method{
			fn:        m.Func,
			argType:   mt.In(2).Elem(),
			replyType: mt.Out(0).Elem(),
		}
	}

	if len(svc.methods) == 0 {
		return fmt.Errorf("%w: %s", ErrNoMethods, name)
	}

	r.mu.Lock()
	r.services[name] = svc
	r.mu.Unlock()
	return nil
}

// Lookup finds a method by service and method name.
func (r *Registry) Lookup(serviceName, methodName string) (*method, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[serviceName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceUnknown, serviceName)
	}
	m, ok := svc.methods[methodName]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrMethodUnknown, serviceName, methodName)
	}
	return m, nil
}

// Call invokes a registered method with a decoded argument.
func (r *Registry) Call(ctx context.Context, serviceName, methodName string, arg any) (any, error) {
	r.mu.RLock()
	svc, ok := r.services[serviceName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceUnknown, serviceName)
	}
	m, ok := svc.methods[methodName]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrMethodUnknown, serviceName, methodName)
	}

	out := m.fn.Call([]reflect.Value{
		svc.receiver,
		reflect.ValueOf(ctx),
		reflect.ValueOf(arg),
	})
	if errv := out[1].Interface(); errv != nil {
		return nil, errv.(error)
	}
	return out[0].Interface(), nil
}

// Services lists registered service names.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	return names
}
