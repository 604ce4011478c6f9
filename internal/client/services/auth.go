package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophrelief/internal/client/client"
	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/client/repositories/nodes"
	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/logging"
)

// ErrNodeIdentityChanged means a node answered with a contract or oracle
// key different from the ones pinned on first contact.
var ErrNodeIdentityChanged = errors.New("node identity changed")

// NodeClient is the part of the ledger client AuthService drives.
type NodeClient interface {
	Login(ctx context.Context) error
	Info(ctx context.Context) (*client.NodeInfo, error)
	CheckAvailability(ctx context.Context) bool
	Close() error
}

// AuthService connects the wallet to one node endpoint.
type AuthService struct {
	client   NodeClient
	nodes    nodes.Repository
	endpoint string
	log      logging.Logger
}

func NewAuthService(client NodeClient, nodes nodes.Repository, endpoint string, log logging.Logger) *AuthService {
	return &AuthService{client: client, nodes: nodes, endpoint: endpoint, log: log.With("module", "auth")}
}

// Connect logs in and checks the node's identity against the pinned one,
// pinning it if the endpoint is new.
func (a *AuthService) Connect(ctx context.Context) error {
	if err := a.client.Login(ctx); err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	return a.checkIdentity(ctx)
}

func (a *AuthService) checkIdentity(ctx context.Context) error {
	info, err := a.client.Info(ctx)
	if err != nil {
		return fmt.Errorf("node info error: %w", err)
	}

	pinned, err := a.nodes.Get(ctx, a.endpoint)
	if errors.Is(err, common.ErrNotFound) {
		a.log.Info(ctx, "pinning new node", "endpoint", a.endpoint, "contract", info.Contract)
		return a.nodes.Pin(ctx, models.KnownNode{Endpoint: a.endpoint, Contract: info.Contract, Oracle: info.Oracle})
	}
	if err != nil {
		return err
	}

	if pinned.Contract != info.Contract || !bytes.Equal(pinned.Oracle, info.Oracle) {
		a.log.Warn(ctx, "node identity mismatch", "endpoint", a.endpoint, "pinned", pinned.Contract, "got", info.Contract)
		return fmt.Errorf("%w: %s first seen %s", ErrNodeIdentityChanged, a.endpoint, pinned.FirstSeen.Format("2006-01-02"))
	}
	return nil
}

// Forget drops the pinned identity so the next Connect pins afresh.
func (a *AuthService) Forget(ctx context.Context) error {
	return a.nodes.Forget(ctx, a.endpoint)
}

// Ping reports client.ErrUnavailable when the node does not answer.
func (a *AuthService) Ping(ctx context.Context) error {
	if !a.client.CheckAvailability(ctx) {
		return client.ErrUnavailable
	}
	return nil
}

func (a *AuthService) Close() error {
	return a.client.Close()
}
