// Package grpc exposes the ledger and oracle services over gRPC with the
// JSON codec from internal/rpc.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophrelief/internal/logging"
	"github.com/dmitrijs2005/gophrelief/internal/rpc"
	"github.com/dmitrijs2005/gophrelief/internal/server/auth"
	"github.com/dmitrijs2005/gophrelief/internal/server/ledger"
	"github.com/dmitrijs2005/gophrelief/internal/server/metrics"
	"github.com/dmitrijs2005/gophrelief/internal/server/oracle"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address string
	ledger  *ledger.Service
	oracle  *oracle.Service
	auth    *auth.Authenticator
	metrics *metrics.Metrics
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, ls *ledger.Service, ors *oracle.Service, au *auth.Authenticator, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		ledger:  ls,
		oracle:  ors,
		auth:    au,
		metrics: m,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{}
	if s.metrics != nil {
		interceptors = append(interceptors, s.metrics.UnaryServerInterceptor())
	}
	interceptors = append(interceptors, s.accessTokenInterceptor)

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	rpc.RegisterLedgerServer(srv, s)
	rpc.RegisterOracleServer(srv, s)
	return srv
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}
