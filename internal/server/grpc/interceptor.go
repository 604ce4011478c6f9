package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/dmitrijs2005/gophrelief/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const addressKey ctxKey = "address"

// protectedMethods require a bearer token.
var protectedMethods = map[string]bool{
	rpc.LedgerCreateRecordMethod:     true,
	rpc.LedgerVerifyDecryptionMethod: true,
	rpc.OracleAttestInputMethod:      true,
	rpc.OracleDecryptMethod:          true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	addr, err := s.auth.Authenticate(accessToken)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	return handler(context.WithValue(ctx, addressKey, addr), req)
}

func callerFromContext(ctx context.Context) (keyx.Address, error) {
	addr, ok := ctx.Value(addressKey).(keyx.Address)
	if !ok {
		return keyx.Address{}, status.Error(codes.Unauthenticated, "no caller")
	}
	return addr, nil
}
