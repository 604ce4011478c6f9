package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophrelief/internal/client/client"
	"github.com/dmitrijs2005/gophrelief/internal/client/config"
	"github.com/dmitrijs2005/gophrelief/internal/client/gateway"
	"github.com/dmitrijs2005/gophrelief/internal/client/repositories/nodes"
	"github.com/dmitrijs2005/gophrelief/internal/client/repositories/operations"
	"github.com/dmitrijs2005/gophrelief/internal/client/services"
	"github.com/dmitrijs2005/gophrelief/internal/client/verifier"
	"github.com/dmitrijs2005/gophrelief/internal/filex"
	"github.com/dmitrijs2005/gophrelief/internal/logging"

	_ "modernc.org/sqlite"
)

// Start unlocks the wallet, connects to the node and runs the REPL until the
// user exits.
func Start(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	logger := logging.New(os.Stderr, "text", cfg.LogLevel)
	reader := bufio.NewReader(in)

	key, err := UnlockWallet(cfg.KeystorePath, reader, out)
	if err != nil {
		return fmt.Errorf("wallet: %w", err)
	}
	fmt.Fprintln(out, "Wallet", key.Address().Hex())

	if _, err := filex.EnsureDir(filepath.Dir(cfg.JournalPath)); err != nil {
		return err
	}
	db, err := client.InitDatabase(ctx, cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer db.Close()

	ledger, err := client.NewGRPCClient(cfg.NodeEndpointAddr, key,
		client.WithApproval(PromptApproval(reader, out)),
		client.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	auth := services.NewAuthService(ledger, nodes.NewSQLiteRepository(db), cfg.NodeEndpointAddr, logger)
	defer auth.Close()

	if err := auth.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", cfg.NodeEndpointAddr, err)
	}

	capability := gateway.NewOracleCapability(ledger)
	if err := capability.Init(ctx); err != nil {
		return fmt.Errorf("encryption capability: %w", err)
	}
	gw := gateway.New(capability, logger)

	records := services.NewRecordService(ledger, gw, verifier.New(ledger, gw, logger), key.Address(),
		services.WithJournal(operations.NewSQLiteRepository(db)),
		services.WithObserver(StatusPrinter(out)),
		services.WithRecordLogger(logger),
	)

	NewApp(records, key.Address().Hex(), reader, out).Run(ctx, cfg.OnlineCheckInterval)
	return nil
}
