package internal

import (
	"errors"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryCallStream implements grpc.ServerTransportStream for a single bridged
// unary call. It is installed into the request context so that service
// implementations can attach response metadata with plain grpc.SetHeader and
// grpc.SetTrailer calls; the bridge collects the accumulated metadata after
// the call returns and copies it into HTTP response headers.
type UnaryCallStream struct {
	// Name is the full method name in "/package.Service/Method" format.
	Name string

	mu       sync.Mutex
	hdrs     metadata.MD
	hdrsSent bool
	tlrs     metadata.MD
}

var _ grpc.ServerTransportStream = (*UnaryCallStream)(nil)

func (s *UnaryCallStream) Method() string {
	return s.Name
}

func (s *UnaryCallStream) SetHeader(md metadata.MD) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setHeaderLocked(md)
}

func (s *UnaryCallStream) SendHeader(md metadata.MD) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setHeaderLocked(md); err != nil {
		return err
	}
	s.hdrsSent = true
	return nil
}

func (s *UnaryCallStream) setHeaderLocked(md metadata.MD) error {
	if s.hdrsSent {
		return errors.New("headers already sent")
	}
	if s.hdrs == nil {
		s.hdrs = metadata.MD{}
	}
	for k, v := range md {
		s.hdrs[k] = append(s.hdrs[k], v...)
	}
	return nil
}

func (s *UnaryCallStream) SetTrailer(md metadata.MD) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tlrs == nil {
		s.tlrs = metadata.MD{}
	}
	for k, v := range md {
		s.tlrs[k] = append(s.tlrs[k], v...)
	}
	return nil
}

// Headers returns the metadata accumulated via SetHeader and SendHeader.
func (s *UnaryCallStream) Headers() metadata.MD {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hdrs
}

// Trailers returns the metadata accumulated via SetTrailer.
func (s *UnaryCallStream) Trailers() metadata.MD {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tlrs
}
