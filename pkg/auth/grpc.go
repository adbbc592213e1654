package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// grpcAuthorizationKey is the metadata key; gRPC lowercases keys.
const grpcAuthorizationKey = "authorization"

// UnaryServerInterceptor authenticates unary calls with the same rules
// as [HTTPMiddleware]. Rejections map to codes.Unauthenticated and
// metadata outages to codes.Unavailable.
func UnaryServerInterceptor(validator RequestValidator) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := authenticateGRPC(ctx, validator)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming counterpart of
// [UnaryServerInterceptor].
func StreamServerInterceptor(validator RequestValidator) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := authenticateGRPC(ss.Context(), validator)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// UnaryClientInterceptor forwards the bearer token found in the context
// to outgoing calls.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		return invoker(forwardBearerToken(ctx), method, req, reply, cc, opts...)
	}
}

func authenticateGRPC(ctx context.Context, validator RequestValidator) (context.Context, error) {
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(grpcAuthorizationKey); len(values) > 0 {
			header = values[0]
		}
	}

	principal, err := validator.ValidateRequest(ctx, header)
	if err != nil {
		if sserr.IsUnavailable(err) {
			return ctx, status.Error(codes.Unavailable, "authentication temporarily unavailable")
		}
		return ctx, status.Error(codes.Unauthenticated, "unauthorized")
	}

	ctx = ContextWithPrincipal(ctx, principal)
	if token, err := ExtractBearerToken(header); err == nil {
		ctx = ContextWithBearerToken(ctx, token)
	}
	return ctx, nil
}

func forwardBearerToken(ctx context.Context) context.Context {
	token, ok := BearerTokenFromContext(ctx)
	if !ok {
		return ctx
	}
	if md, ok := metadata.FromOutgoingContext(ctx); ok && len(md.Get(grpcAuthorizationKey)) > 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, grpcAuthorizationKey, "Bearer "+token)
}

// wrappedServerStream overrides Context so handlers see the principal.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
