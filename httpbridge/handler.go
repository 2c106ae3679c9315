package httpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"runtime/debug"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/juspay/g2h/internal"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// boundMethod is the per-method binding resolved at route table construction:
// the reflected implementation method, the request type to instantiate per
// call, and the enum codecs for its request and response messages.
type boundMethod struct {
	fullMethod string
	impl       interface{}
	fn         reflect.Value
	reqType    reflect.Type
	reqCodec   *enumCodec // nil when no enum is reachable or string enums are off
	respCodec  *enumCodec // nil when no enum is reachable
}

// bind resolves the implementation method for one route and checks its
// signature.
func (sb *ServiceBinding) bind(rt route, impl interface{}) (*boundMethod, error) {
	if impl == nil {
		return nil, fmt.Errorf("service %s: nil implementation", sb.Service.FullName())
	}
	name := rt.method.Name
	fn := reflect.ValueOf(impl).MethodByName(name)
	if !fn.IsValid() {
		return nil, fmt.Errorf("service %s: implementation %T has no method %s", sb.Service.FullName(), impl, name)
	}
	ft := fn.Type()
	if ft.NumIn() != 2 || ft.NumOut() != 2 ||
		ft.In(0) != ctxType ||
		ft.In(1).Kind() != reflect.Ptr || ft.In(1).Elem().Kind() != reflect.Struct ||
		ft.Out(0).Kind() != reflect.Ptr ||
		ft.Out(1) != errType {
		return nil, fmt.Errorf("service %s: method %s must have signature func(context.Context, *Request) (*Response, error), got %v",
			sb.Service.FullName(), name, ft)
	}

	bm := &boundMethod{
		fullMethod: "/" + sb.Service.FullName() + "/" + name,
		impl:       impl,
		fn:         fn,
		reqType:    ft.In(1).Elem(),
		respCodec:  newEnumCodec(sb.reg, rt.method.Output),
	}
	if sb.bridge.stringEnums {
		bm.reqCodec = newEnumCodec(sb.reg, rt.method.Input)
	}
	return bm, nil
}

// decodeRequest decodes the JSON body into a fresh request message,
// normalizing enum symbols first when the enum codec is wired in.
func (bm *boundMethod) decodeRequest(body []byte) (interface{}, error) {
	if bm.reqCodec != nil {
		var err error
		body, err = bm.reqCodec.Normalize(body)
		if err != nil {
			return nil, err
		}
	}
	req := reflect.New(bm.reqType).Interface()
	if err := json.Unmarshal(body, req); err != nil {
		return nil, &decodeError{msg: err.Error()}
	}
	return req, nil
}

// encodeResponse encodes the response message, rewriting known enum
// discriminants to their symbolic names.
func (bm *boundMethod) encodeResponse(resp interface{}) ([]byte, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	if bm.respCodec != nil {
		body, err = bm.respCodec.Symbolize(body)
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

// call invokes the implementation method, passing through the configured
// interceptor. Panics in the implementation are recovered at this boundary
// and reported as Internal, with no detail leaked to the client.
func (b *Bridge) call(ctx context.Context, bm *boundMethod, req interface{}) (resp interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("panic in bridged call",
				"method", bm.fullMethod,
				"panic", p,
				"stack", string(debug.Stack()))
			resp = nil
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		out := bm.fn.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(req)})
		if errv := out[1]; !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
		return out[0].Interface(), nil
	}
	if b.interceptor != nil {
		info := &grpc.UnaryServerInfo{Server: bm.impl, FullMethod: bm.fullMethod}
		return b.interceptor(ctx, req, info, handler)
	}
	return handler(ctx, req)
}

// handleMethod returns the HTTP handler executing one bridged unary call.
func (b *Bridge) handleMethod(bm *boundMethod) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer drainAndClose(r.Body)

		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed)
			return
		}
		if ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || ct != "application/json" {
			writeError(w, http.StatusUnsupportedMediaType)
			return
		}

		ctx, cancel, err := contextFromHeaders(ctx, r.Header)
		if err != nil {
			writeError(w, http.StatusBadRequest)
			return
		}
		defer cancel()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, StatusClientClosedRequest)
			return
		}

		req, err := bm.decodeRequest(body)
		if err != nil {
			b.errFunc(r.Context(), status.New(codes.InvalidArgument, err.Error()), w)
			return
		}
		if b.validate != nil {
			if err := b.validate.StructCtx(ctx, req); err != nil {
				b.errFunc(r.Context(), status.New(codes.InvalidArgument, err.Error()), w)
				return
			}
		}

		sts := internal.UnaryCallStream{Name: bm.fullMethod}
		ctx = grpc.NewContextWithServerTransportStream(ctx, &sts)
		resp, err := b.call(ctx, bm, req)
		toHeaders(sts.Headers(), w.Header(), "")
		toHeaders(sts.Trailers(), w.Header(), trailerPrefix)
		if err != nil {
			st, _ := status.FromError(err)
			if st.Code() == codes.OK {
				// we know an error occurred; don't send back a non-error status
				st = status.New(codes.Internal, st.Message())
			}
			b.errFunc(r.Context(), st, w)
			return
		}

		out, err := bm.encodeResponse(resp)
		if err != nil {
			writeError(w, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(out)))
		if _, err := w.Write(out); err != nil {
			// client is gone; nothing to retry, other requests unaffected
			b.logger.Warn("failed to write response", "method", bm.fullMethod, "error", err)
		}
	})
}

// contextFromHeaders derives the request context for the bridged call: the
// translated metadata is attached as incoming metadata, and a Grpc-Timeout
// header, if present, becomes a context deadline (see the "Timeout" component
// of the gRPC wire format).
func contextFromHeaders(parent context.Context, h http.Header) (context.Context, context.CancelFunc, error) {
	cancel := func() {} // default to no-op
	md, err := asMetadata(h)
	if err != nil {
		return parent, cancel, err
	}
	ctx := metadata.NewIncomingContext(parent, md)

	timeout := h.Get("Grpc-Timeout")
	if timeout != "" {
		suffix := timeout[len(timeout)-1]
		if timeoutVal, err := strconv.ParseInt(timeout[:len(timeout)-1], 10, 64); err == nil {
			var unit time.Duration
			switch suffix {
			case 'H':
				unit = time.Hour
			case 'M':
				unit = time.Minute
			case 'S':
				unit = time.Second
			case 'm':
				unit = time.Millisecond
			case 'u':
				unit = time.Microsecond
			case 'n':
				unit = time.Nanosecond
			}
			if unit != 0 {
				ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutVal)*unit)
			}
		}
	}
	return ctx, cancel, nil
}

func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}

func writeError(w http.ResponseWriter, code int) {
	msg := http.StatusText(code)
	if msg == "" {
		if code == StatusClientClosedRequest {
			msg = "Client Closed Request"
		} else {
			msg = "Unknown"
		}
	}
	http.Error(w, msg, code)
}
