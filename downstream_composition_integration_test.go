package carbon_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	carbon "github.com/goliatone/go-carbon"
	carbonprom "github.com/goliatone/go-carbon/adapters/prometheus"
	carboncommand "github.com/goliatone/go-carbon/command"
	"github.com/goliatone/go-carbon/core"
	carbonquery "github.com/goliatone/go-carbon/query"
	"github.com/goliatone/go-carbon/signing"
	sqlstore "github.com/goliatone/go-carbon/store/sql"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/holiman/uint256"
	prom "github.com/prometheus/client_golang/prometheus"
)

var (
	downstreamGovernance = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	downstreamHolder     = common.HexToAddress("0x00000000000000000000000000000000000c0de")
)

func TestDownstreamComposition_PersistsDepositsAndServesHistory(t *testing.T) {
	ctx := context.Background()

	client, err := sqlstore.OpenClient(ctx, sqlstore.PersistenceConfig{
		Driver:      sqlstore.DriverSQLite,
		DSN:         fmt.Sprintf("file:carbon-downstream-%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano()),
		PingTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("open client: %v", err)
	}
	defer func() { _ = client.Close() }()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = time.Minute
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	history, err := sqlstore.NewCachedDepositHistory(factory.DepositStore(), factory.EventStore(), cacheService)
	if err != nil {
		t.Fatalf("new cached deposit history: %v", err)
	}

	registry := prom.NewRegistry()
	recorder, err := carbonprom.NewRecorder(registry, "")
	if err != nil {
		t.Fatalf("new prometheus recorder: %v", err)
	}

	signer, err := signing.GenerateKeySigner()
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}
	cfg := carbon.DefaultConfig()
	cfg.Receipt.Kind = string(core.ReceiptKindProvenance)
	deployment, err := carbon.Bootstrap(ctx, cfg,
		carbon.BootstrapInput{Governance: downstreamGovernance, Signer: signer.Address()},
		carbon.WithEventSink(history),
		carbon.WithMetricsRecorder(recorder),
	)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	facade, err := carbon.NewFacade(deployment, carbon.WithDepositHistory(history))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	queries := facade.Queries()

	for _, id := range []core.TokenID{11, 12} {
		amount := uint256.NewInt(100)
		signature, err := signer.SignMint(downstreamHolder, id, amount, "")
		if err != nil {
			t.Fatalf("sign mint %d: %v", id, err)
		}
		if err := commands.CreateToken.Execute(ctx, carboncommand.CreateTokenMessage{
			Caller:    downstreamHolder,
			Request:   core.CreateRequest{To: downstreamHolder, ID: id, Amount: amount, MaxSupply: amount},
			Signature: signature,
		}); err != nil {
			t.Fatalf("create token %d: %v", id, err)
		}
	}

	vault := deployment.Vault.Address()
	if err := commands.SafeBatchTransfer.Execute(ctx, carboncommand.SafeBatchTransferMessage{
		Caller:  downstreamHolder,
		From:    downstreamHolder,
		To:      vault,
		IDs:     []core.TokenID{11, 12},
		Amounts: []*uint256.Int{uint256.NewInt(15), uint256.NewInt(25)},
	}); err != nil {
		t.Fatalf("batch deposit: %v", err)
	}

	entry, err := queries.GetDeposit.Query(ctx, carbonquery.GetDepositMessage{Vault: vault, ReceiptID: 1})
	if err != nil {
		t.Fatalf("get deposit: %v", err)
	}
	if entry.OriginalID != 12 || !entry.Amount.Eq(uint256.NewInt(25)) || entry.From != downstreamHolder {
		t.Fatalf("unexpected deposit entry %#v", entry)
	}
	if entry.Source != deployment.Ledger.Address() || entry.Backend != deployment.Receipt.Address() {
		t.Fatalf("expected ledger source and provenance backend, got %#v", entry)
	}

	page, err := queries.ListDeposits.Query(ctx, carbonquery.ListDepositsMessage{
		Filter: core.DepositFilter{Vault: vault, From: downstreamHolder},
	})
	if err != nil {
		t.Fatalf("list deposits: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 || page.Items[0].ReceiptID != 0 {
		t.Fatalf("unexpected deposit page %#v", page)
	}

	if _, err := queries.GetDeposit.Query(ctx, carbonquery.GetDepositMessage{Vault: vault, ReceiptID: 9}); !errors.Is(err, core.ErrDepositNotFound) {
		t.Fatalf("expected deposit not found, got %v", err)
	}

	provenance, ok := deployment.Provenance(ctx)
	if !ok {
		t.Fatalf("expected provenance backend")
	}
	if got := provenance.BalanceOf(ctx, downstreamHolder, 0); !got.Eq(uint256.NewInt(15)) {
		t.Fatalf("expected receipt 0 balance 15, got %s", got.Dec())
	}

	events, err := factory.EventStore().ListEvents(ctx, sqlstore.EventFilter{Name: core.EventCarbonBatchDeposited})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if events.Total != 1 {
		t.Fatalf("expected one batch deposit event, got %d", events.Total)
	}

	if !hasOperationSample(t, registry, "carbon.ledger.safe_batch_transfer.total", "success") {
		t.Fatalf("expected batch transfer counter to be recorded")
	}
}

func hasOperationSample(t *testing.T, registry *prom.Registry, metric string, status string) bool {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "carbon_operations_total" {
			continue
		}
		for _, sample := range family.GetMetric() {
			labels := map[string]string{}
			for _, label := range sample.GetLabel() {
				labels[label.GetName()] = label.GetValue()
			}
			if labels["metric"] == metric && labels["status"] == status && sample.GetCounter().GetValue() > 0 {
				return true
			}
		}
	}
	return false
}
