// trending-cli is a command-line client for interacting with a trendingd node.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/QingfengHuu/trending-nft/internal/events"
	"github.com/QingfengHuu/trending-nft/internal/feed"
	"github.com/QingfengHuu/trending-nft/internal/host"
	"github.com/QingfengHuu/trending-nft/internal/rpc"
	"github.com/QingfengHuu/trending-nft/internal/rpcclient"
	"github.com/QingfengHuu/trending-nft/internal/series"
	"github.com/QingfengHuu/trending-nft/pkg/coin"
	"github.com/QingfengHuu/trending-nft/pkg/crypto"
	"github.com/QingfengHuu/trending-nft/pkg/op"
	"github.com/QingfengHuu/trending-nft/pkg/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := "http://127.0.0.1:8547"
	network := "mainnet"
	keyPath := ""

	// Scan for --rpc, --network, and --key before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case args[0] == "--key" && len(args) > 1:
			keyPath = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--key="):
			keyPath = args[0][len("--key="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	// Set address HRP based on network.
	if network == "testnet" {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "series":
		cmdSeries(client, cmdArgs, keyPath)
	case "registry":
		cmdRegistry(client, cmdArgs, keyPath)
	case "balance":
		cmdBalance(client, cmdArgs)
	case "editions":
		cmdEditions(client, cmdArgs)
	case "send":
		cmdSend(client, cmdArgs, keyPath)
	case "send-editions":
		cmdSendEditions(client, cmdArgs, keyPath)
	case "events":
		cmdEvents(client, cmdArgs)
	case "watch":
		cmdWatch(client, cmdArgs)
	case "peers":
		cmdPeers(client)
	case "key":
		cmdKey(cmdArgs, keyPath)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: trending-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8547)
  --network <net>     mainnet (default) or testnet
  --key <file>        Hex private key file for signing commands

Commands:
  status                          Show node and deployment status
  balance <address>               Show coin balance and nonce
  editions <address>              Show edition balances per series
  send --to <addr> --amount <amt> Send coins (signed)
  send-editions --to <addr> --series <id> --amount <n>
                                  Send editions (signed)
  peers                           Show connected feed peers

  series create --locator <loc>   Open today's series (controller)
  series mint --amount <n> [--payment <amt>]
                                  Mint editions of the current series
  series info [id]                Show the current series, or one by ID
  series locator <id>             Show a series locator
  series set-locator --series <id> --locator <loc>
                                  Update a series locator (controller)
  series withdraw                 Sweep the treasury (controller)

  registry set --id <n> --title <t> [--hash <hex>] [--votes <n>] [--locator <loc>]
                                  Create or update a record (controller)
  registry get <id>               Show a record
  registry del <id>               Delete a record (controller)

  events head                     Show the newest event sequence
  events get <seq>                Show one event
  events tail [--from <seq>]      Follow the event log via RPC polling
  events export --out <file>      Download the compressed event snapshot

  watch [--seeds <addrs>] [--port <n>]
                                  Subscribe to the gossip feed directly

  key new [--out <file>]          Generate a key
  key addr                        Show the address of --key
`)
}

// ── signing ─────────────────────────────────────────────────────────────

// signer builds, signs, and submits operations for the --key identity.
type signer struct {
	client *rpcclient.Client
	key    *crypto.PrivateKey
	addr   types.Address
	dep    types.Hash
}

func newSigner(client *rpcclient.Client, keyPath string) *signer {
	if keyPath == "" {
		fatal("this command signs an operation; pass --key <file>")
	}
	key := loadKey(keyPath)

	var info rpc.HostInfoResult
	if err := client.Call("host_getInfo", nil, &info); err != nil {
		fatal("host_getInfo: %v", err)
	}
	dep, err := types.HexToHash(info.Deployment)
	if err != nil {
		fatal("bad deployment hash from node: %v", err)
	}

	return &signer{
		client: client,
		key:    key,
		addr:   crypto.AddressFromPubKey(key.PublicKey()),
		dep:    dep,
	}
}

func (s *signer) nextNonce() uint64 {
	var result rpc.NonceResult
	if err := s.client.Call("ledger_getNonce", rpc.AddressParam{Address: s.addr.String()}, &result); err != nil {
		fatal("ledger_getNonce: %v", err)
	}
	return result.Nonce + 1
}

func (s *signer) submit(method string, o *op.Op, buildErr error) host.Receipt {
	if buildErr != nil {
		fatal("build operation: %v", buildErr)
	}
	if err := o.Sign(s.key); err != nil {
		fatal("sign operation: %v", err)
	}

	var receipt host.Receipt
	if err := s.client.Call(method, rpc.OpSubmitParam{Op: o}, &receipt); err != nil {
		fatal("%s: %v", method, err)
	}
	return receipt
}

func loadKey(path string) *crypto.PrivateKey {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("read key file: %v", err)
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		fatal("decode key hex: %v", err)
	}
	key, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		fatal("parse key: %v", err)
	}
	return key
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	var info rpc.HostInfoResult
	if err := client.Call("host_getInfo", nil, &info); err != nil {
		fatal("host_getInfo: %v", err)
	}

	fmt.Printf("Network:     %s\n", info.Network)
	fmt.Printf("Deployment:  %s\n", info.Deployment)
	fmt.Printf("Controller:  %s\n", info.Controller)
	fmt.Printf("Treasury:    %s\n", info.Treasury)
	fmt.Printf("Unit Price:  %s TRN\n", coin.FormatShort(info.UnitPrice))
	fmt.Printf("Mint Active: %v\n", info.MintActive)
	if info.Current != nil {
		fmt.Printf("Current Series:\n")
		printSeriesInfo(*info.Current)
	}
	fmt.Printf("Event Head:  %d\n", info.EventsHead)

	var peers rpc.PeerInfoResult
	if err := client.Call("net_getPeerInfo", nil, &peers); err != nil {
		fatal("net_getPeerInfo: %v", err)
	}
	fmt.Printf("Peers:       %d\n", peers.Count)
}

func printSeriesInfo(info series.Info) {
	fmt.Printf("  ID:      %d\n", info.ID)
	fmt.Printf("  Locator: %s\n", info.Locator)
	fmt.Printf("  Minted:  %d\n", info.Minted)
	fmt.Printf("  Window:  %s -> %s\n",
		formatTime(info.WindowStart), formatTime(info.WindowEnd))
}

// ── series ──────────────────────────────────────────────────────────────

func cmdSeries(client *rpcclient.Client, args []string, keyPath string) {
	if len(args) < 1 {
		fatal("Usage: trending-cli series <create|mint|info|locator|set-locator|withdraw> [flags]")
	}

	switch args[0] {
	case "create":
		cmdSeriesCreate(client, args[1:], keyPath)
	case "mint":
		cmdSeriesMint(client, args[1:], keyPath)
	case "info":
		cmdSeriesInfo(client, args[1:])
	case "locator":
		if len(args) < 2 {
			fatal("Usage: trending-cli series locator <id>")
		}
		cmdSeriesLocator(client, args[1])
	case "set-locator":
		cmdSeriesSetLocator(client, args[1:], keyPath)
	case "withdraw":
		cmdSeriesWithdraw(client, keyPath)
	default:
		fatal("Unknown series command: %s", args[0])
	}
}

func cmdSeriesCreate(client *rpcclient.Client, args []string, keyPath string) {
	fs := flag.NewFlagSet("series create", flag.ExitOnError)
	locator := fs.String("locator", "", "Metadata locator for the new series")
	fs.Parse(args)

	if *locator == "" {
		fatal("Usage: trending-cli --key <file> series create --locator <loc>")
	}

	s := newSigner(client, keyPath)
	o, err := op.NewSeriesCreate(s.dep, s.nextNonce(), *locator)
	receipt := s.submit("series_create", o, err)

	fmt.Printf("Series created!\n")
	fmt.Printf("  ID:      %d\n", receipt.Result)
	fmt.Printf("  Op:      %s\n", receipt.Op)
	fmt.Printf("  Locator: %s\n", *locator)
}

func cmdSeriesMint(client *rpcclient.Client, args []string, keyPath string) {
	fs := flag.NewFlagSet("series mint", flag.ExitOnError)
	amount := fs.Uint64("amount", 0, "Number of editions to mint")
	paymentStr := fs.String("payment", "", "Payment in coins (default: amount × unit price)")
	fs.Parse(args)

	if *amount == 0 {
		fatal("Usage: trending-cli --key <file> series mint --amount <n> [--payment <amt>]")
	}

	s := newSigner(client, keyPath)

	// Payment defaults to the exact price quoted by the node.
	var payment uint64
	if *paymentStr != "" {
		p, err := coin.Parse(*paymentStr)
		if err != nil {
			fatal("invalid payment: %v", err)
		}
		payment = p
	} else {
		var info rpc.HostInfoResult
		if err := client.Call("host_getInfo", nil, &info); err != nil {
			fatal("host_getInfo: %v", err)
		}
		if info.UnitPrice > 0 && *amount > math.MaxUint64/info.UnitPrice {
			fatal("amount too large")
		}
		payment = *amount * info.UnitPrice
	}

	o, err := op.NewSeriesMint(s.dep, s.nextNonce(), *amount, payment)
	receipt := s.submit("series_mint", o, err)

	fmt.Printf("Minted %d edition(s) of series %d\n", *amount, receipt.Result)
	fmt.Printf("  Op:      %s\n", receipt.Op)
	fmt.Printf("  Payment: %s TRN\n", coin.FormatShort(payment))
}

func cmdSeriesInfo(client *rpcclient.Client, args []string) {
	if len(args) == 0 {
		// Current series.
		var result rpc.CurrentSeriesResult
		if err := client.Call("series_getCurrent", nil, &result); err != nil {
			fatal("series_getCurrent: %v", err)
		}
		if result.Series == nil {
			fmt.Println("No series created yet")
			return
		}
		active := "closed"
		if result.Active {
			active = "open"
		}
		fmt.Printf("Current series (mint window %s):\n", active)
		printSeriesInfo(*result.Series)
		return
	}

	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fatal("invalid series id: %v", err)
	}
	var result rpc.SeriesGetResult
	if err := client.Call("series_get", rpc.SeriesIDParam{ID: id}, &result); err != nil {
		fatal("series_get: %v", err)
	}
	printSeriesInfo(series.Info{
		ID:          result.ID,
		Locator:     result.Locator,
		Minted:      result.Minted,
		WindowStart: result.WindowStart,
		WindowEnd:   result.WindowEnd,
	})
}

func cmdSeriesLocator(client *rpcclient.Client, arg string) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		fatal("invalid series id: %v", err)
	}
	var result rpc.LocatorResult
	if err := client.Call("series_getLocator", rpc.SeriesIDParam{ID: id}, &result); err != nil {
		fatal("series_getLocator: %v", err)
	}
	fmt.Println(result.Locator)
}

func cmdSeriesSetLocator(client *rpcclient.Client, args []string, keyPath string) {
	fs := flag.NewFlagSet("series set-locator", flag.ExitOnError)
	seriesID := fs.Uint64("series", 0, "Series ID")
	locator := fs.String("locator", "", "New metadata locator")
	fs.Parse(args)

	if *seriesID == 0 || *locator == "" {
		fatal("Usage: trending-cli --key <file> series set-locator --series <id> --locator <loc>")
	}

	s := newSigner(client, keyPath)
	o, err := op.NewSeriesUpdateLocator(s.dep, s.nextNonce(), *seriesID, *locator)
	receipt := s.submit("series_updateLocator", o, err)

	fmt.Printf("Locator updated for series %d\n", *seriesID)
	fmt.Printf("  Op: %s\n", receipt.Op)
}

func cmdSeriesWithdraw(client *rpcclient.Client, keyPath string) {
	s := newSigner(client, keyPath)
	o, err := op.NewSeriesWithdraw(s.dep, s.nextNonce())
	receipt := s.submit("series_withdraw", o, err)

	fmt.Printf("Treasury swept to %s\n", s.addr.String())
	fmt.Printf("  Amount: %s TRN\n", coin.FormatShort(receipt.Result))
	fmt.Printf("  Op:     %s\n", receipt.Op)
}

// ── registry ────────────────────────────────────────────────────────────

func cmdRegistry(client *rpcclient.Client, args []string, keyPath string) {
	if len(args) < 1 {
		fatal("Usage: trending-cli registry <set|get|del> [flags]")
	}

	switch args[0] {
	case "set":
		cmdRegistrySet(client, args[1:], keyPath)
	case "get":
		if len(args) < 2 {
			fatal("Usage: trending-cli registry get <id>")
		}
		cmdRegistryGet(client, args[1])
	case "del":
		if len(args) < 2 {
			fatal("Usage: trending-cli registry del <id>")
		}
		cmdRegistryDel(client, args[1], keyPath)
	default:
		fatal("Unknown registry command: %s", args[0])
	}
}

func cmdRegistrySet(client *rpcclient.Client, args []string, keyPath string) {
	fs := flag.NewFlagSet("registry set", flag.ExitOnError)
	id := fs.Uint64("id", 0, "Record ID")
	title := fs.String("title", "", "Topic title")
	hashHex := fs.String("hash", "", "Content hash (32-byte hex)")
	votes := fs.Uint64("votes", 0, "Vote count")
	locator := fs.String("locator", "", "Metadata locator")
	fs.Parse(args)

	if *id == 0 || *title == "" {
		fatal("Usage: trending-cli --key <file> registry set --id <n> --title <t> [--hash <hex>] [--votes <n>] [--locator <loc>]")
	}

	var contentHash types.Hash
	if *hashHex != "" {
		h, err := types.HexToHash(*hashHex)
		if err != nil {
			fatal("invalid hash: %v", err)
		}
		contentHash = h
	}

	s := newSigner(client, keyPath)
	o, err := op.NewRegistryUpsert(s.dep, s.nextNonce(), op.UpsertPayload{
		ID:      *id,
		Title:   *title,
		Hash:    contentHash,
		Votes:   *votes,
		Locator: *locator,
	})
	receipt := s.submit("registry_upsert", o, err)

	fmt.Printf("Record %d written\n", receipt.Result)
	fmt.Printf("  Op: %s\n", receipt.Op)
}

func cmdRegistryGet(client *rpcclient.Client, arg string) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		fatal("invalid record id: %v", err)
	}

	var result rpc.RecordResult
	if err := client.Call("registry_get", rpc.RecordIDParam{ID: id}, &result); err != nil {
		fatal("registry_get: %v", err)
	}

	fmt.Printf("ID:      %d\n", result.ID)
	fmt.Printf("Title:   %s\n", result.Title)
	fmt.Printf("Hash:    %s\n", result.Hash)
	fmt.Printf("Votes:   %d\n", result.Votes)
	fmt.Printf("Locator: %s\n", result.Locator)
	fmt.Printf("Created: %s\n", formatTime(result.CreatedAt))
	if result.UpdatedAt != result.CreatedAt {
		fmt.Printf("Updated: %s\n", formatTime(result.UpdatedAt))
	}
}

func cmdRegistryDel(client *rpcclient.Client, arg string, keyPath string) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		fatal("invalid record id: %v", err)
	}

	s := newSigner(client, keyPath)
	o, buildErr := op.NewRegistryDelete(s.dep, s.nextNonce(), id)
	receipt := s.submit("registry_delete", o, buildErr)

	fmt.Printf("Record %d deleted\n", id)
	fmt.Printf("  Op: %s\n", receipt.Op)
}

// ── balance / editions ──────────────────────────────────────────────────

func cmdBalance(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: trending-cli balance <address>")
	}

	addr := args[0]
	var result rpc.BalanceResult
	if err := client.Call("ledger_getBalance", rpc.AddressParam{Address: addr}, &result); err != nil {
		fatal("ledger_getBalance: %v", err)
	}
	var nonce rpc.NonceResult
	if err := client.Call("ledger_getNonce", rpc.AddressParam{Address: addr}, &nonce); err != nil {
		fatal("ledger_getNonce: %v", err)
	}

	fmt.Printf("Address: %s\n", result.Address)
	fmt.Printf("Balance: %s TRN\n", coin.Format(result.Balance))
	fmt.Printf("Nonce:   %d\n", nonce.Nonce)
}

func cmdEditions(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: trending-cli editions <address>")
	}

	var result rpc.EditionsResult
	if err := client.Call("ledger_getEditions", rpc.AddressParam{Address: args[0]}, &result); err != nil {
		fatal("ledger_getEditions: %v", err)
	}

	fmt.Printf("Address: %s\n", result.Address)
	if len(result.Editions) == 0 {
		fmt.Println("No editions held")
		return
	}
	var total uint64
	for _, e := range result.Editions {
		fmt.Printf("  series %-6d  %d edition(s)\n", e.Series, e.Amount)
		total += e.Amount
	}
	fmt.Printf("Total:   %d edition(s) across %d series\n", total, len(result.Editions))
}

// ── send ────────────────────────────────────────────────────────────────

func cmdSend(client *rpcclient.Client, args []string, keyPath string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	toAddr := fs.String("to", "", "Recipient address")
	amountStr := fs.String("amount", "", "Amount to send (e.g. 1.5)")
	fs.Parse(args)

	if *toAddr == "" || *amountStr == "" {
		fatal("Usage: trending-cli --key <file> send --to <addr> --amount <amt>")
	}

	amount, err := coin.Parse(*amountStr)
	if err != nil {
		fatal("invalid amount: %v", err)
	}
	recipient, err := types.ParseAddress(*toAddr)
	if err != nil {
		fatal("invalid recipient address: %v", err)
	}

	s := newSigner(client, keyPath)
	o, buildErr := op.NewCoinTransfer(s.dep, s.nextNonce(), recipient, amount)
	receipt := s.submit("coin_transfer", o, buildErr)

	fmt.Printf("Sent %s TRN to %s\n", coin.FormatShort(amount), recipient.String())
	fmt.Printf("  Op: %s\n", receipt.Op)
}

func cmdSendEditions(client *rpcclient.Client, args []string, keyPath string) {
	fs := flag.NewFlagSet("send-editions", flag.ExitOnError)
	toAddr := fs.String("to", "", "Recipient address")
	seriesID := fs.Uint64("series", 0, "Series ID")
	amount := fs.Uint64("amount", 0, "Number of editions")
	fs.Parse(args)

	if *toAddr == "" || *seriesID == 0 || *amount == 0 {
		fatal("Usage: trending-cli --key <file> send-editions --to <addr> --series <id> --amount <n>")
	}

	recipient, err := types.ParseAddress(*toAddr)
	if err != nil {
		fatal("invalid recipient address: %v", err)
	}

	s := newSigner(client, keyPath)
	o, buildErr := op.NewEditionTransfer(s.dep, s.nextNonce(), recipient, *seriesID, *amount)
	receipt := s.submit("edition_transfer", o, buildErr)

	fmt.Printf("Sent %d edition(s) of series %d to %s\n", *amount, *seriesID, recipient.String())
	fmt.Printf("  Op: %s\n", receipt.Op)
}

// ── events ──────────────────────────────────────────────────────────────

func cmdEvents(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: trending-cli events <head|get|tail|export> [flags]")
	}

	switch args[0] {
	case "head":
		var result rpc.EventsHeadResult
		if err := client.Call("events_getHead", nil, &result); err != nil {
			fatal("events_getHead: %v", err)
		}
		fmt.Println(result.Head)
	case "get":
		if len(args) < 2 {
			fatal("Usage: trending-cli events get <seq>")
		}
		cmdEventsGet(client, args[1])
	case "tail":
		cmdEventsTail(client, args[1:])
	case "export":
		cmdEventsExport(client, args[1:])
	default:
		fatal("Unknown events command: %s", args[0])
	}
}

func cmdEventsGet(client *rpcclient.Client, arg string) {
	seq, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		fatal("invalid sequence: %v", err)
	}
	var ev events.Event
	if err := client.Call("events_get", rpc.EventGetParam{Seq: seq}, &ev); err != nil {
		fatal("events_get: %v", err)
	}
	printEvent(ev)
}

func cmdEventsTail(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("events tail", flag.ExitOnError)
	from := fs.Uint64("from", 0, "Start sequence (default: last 10 events)")
	fs.Parse(args)

	var head rpc.EventsHeadResult
	if err := client.Call("events_getHead", nil, &head); err != nil {
		fatal("events_getHead: %v", err)
	}

	next := *from
	if next == 0 {
		if head.Head > 10 {
			next = head.Head - 9
		} else {
			next = 1
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		var result rpc.EventRangeResult
		if err := client.Call("events_getRange", rpc.EventRangeParam{From: next}, &result); err != nil {
			fatal("events_getRange: %v", err)
		}
		for _, ev := range result.Events {
			printEvent(ev)
			next = ev.Seq + 1
		}

		select {
		case <-sigCh:
			return
		case <-ticker.C:
		}
	}
}

func cmdEventsExport(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("events export", flag.ExitOnError)
	outPath := fs.String("out", "", "Output file for the snapshot")
	fs.Parse(args)

	if *outPath == "" {
		fatal("Usage: trending-cli events export --out <file>")
	}

	var result rpc.EventsExportResult
	if err := client.Call("events_export", nil, &result); err != nil {
		fatal("events_export: %v", err)
	}
	if err := os.WriteFile(*outPath, result.Data, 0644); err != nil {
		fatal("write snapshot: %v", err)
	}

	fmt.Printf("Snapshot written to %s\n", *outPath)
	fmt.Printf("  Events: %d\n", result.Head)
	fmt.Printf("  Size:   %d bytes (zstd)\n", len(result.Data))
}

// ── watch ───────────────────────────────────────────────────────────────

// cmdWatch joins the gossip feed as a lightweight indexer and prints
// events as they arrive, without going through the RPC server.
func cmdWatch(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	seeds := fs.String("seeds", "", "Seed nodes (comma-separated multiaddrs)")
	port := fs.Int("port", 0, "Listen port (default: random)")
	networkID := fs.String("network-id", "", "Deployment network for discovery (default: ask the node)")
	fs.Parse(args)

	// Discovery needs the deployment's network name. Best effort: the
	// node knows it; --network-id overrides for RPC-less operation.
	netID := *networkID
	if netID == "" {
		var info rpc.HostInfoResult
		if err := client.Call("host_getInfo", nil, &info); err == nil {
			netID = info.Network
		}
	}

	var seedList []string
	if *seeds != "" {
		for _, s := range strings.Split(*seeds, ",") {
			if s = strings.TrimSpace(s); s != "" {
				seedList = append(seedList, s)
			}
		}
	}

	f := feed.New(feed.Config{
		ListenAddr: "0.0.0.0",
		Port:       *port,
		Seeds:      seedList,
		MaxPeers:   50,
		NetworkID:  netID,
	})
	f.SetEventHandler(func(from peer.ID, data []byte) {
		var ev events.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		printEvent(ev)
	})

	if err := f.Start(); err != nil {
		fatal("start feed: %v", err)
	}
	defer f.Stop()

	fmt.Fprintf(os.Stderr, "Watching as %s (network %q, ^C to stop)\n", f.ID(), netID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

// ── peers ───────────────────────────────────────────────────────────────

func cmdPeers(client *rpcclient.Client) {
	var node rpc.NodeInfoResult
	if err := client.Call("net_getNodeInfo", nil, &node); err != nil {
		fatal("net_getNodeInfo: %v", err)
	}

	fmt.Printf("Node ID: %s\n", node.ID)
	for _, a := range node.Addrs {
		fmt.Printf("  Listen: %s\n", a)
	}

	var peers rpc.PeerInfoResult
	if err := client.Call("net_getPeerInfo", nil, &peers); err != nil {
		fatal("net_getPeerInfo: %v", err)
	}

	fmt.Printf("Peers:   %d\n", peers.Count)
	for _, p := range peers.Peers {
		fmt.Printf("  %s (connected: %s)\n", p.ID, p.ConnectedAt)
	}
}

// ── key ─────────────────────────────────────────────────────────────────

func cmdKey(args []string, keyPath string) {
	if len(args) < 1 {
		fatal("Usage: trending-cli key <new|addr> [flags]")
	}

	switch args[0] {
	case "new":
		cmdKeyNew(args[1:])
	case "addr":
		if keyPath == "" {
			fatal("Usage: trending-cli --key <file> key addr")
		}
		key := loadKey(keyPath)
		defer key.Zero()
		fmt.Println(crypto.AddressFromPubKey(key.PublicKey()).String())
	default:
		fatal("Unknown key command: %s", args[0])
	}
}

func cmdKeyNew(args []string) {
	fs := flag.NewFlagSet("key new", flag.ExitOnError)
	outPath := fs.String("out", "", "Write the key to this file instead of stdout")
	fs.Parse(args)

	key, err := crypto.GenerateKey()
	if err != nil {
		fatal("generate key: %v", err)
	}
	defer key.Zero()

	keyHex := hex.EncodeToString(key.Serialize())
	addr := crypto.AddressFromPubKey(key.PublicKey())

	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(keyHex+"\n"), 0600); err != nil {
			fatal("write key file: %v", err)
		}
		fmt.Printf("Key written to %s\n", *outPath)
	} else {
		fmt.Printf("Private key: %s\n", keyHex)
	}
	fmt.Printf("Address:     %s\n", addr.String())
}

// ── Formatting helpers ─────────────────────────────────────────────────

func formatTime(ts uint64) string {
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04:05 UTC")
}

func printEvent(ev events.Event) {
	line := fmt.Sprintf("[%d] %s %-22s", ev.Seq, formatTime(ev.Time), ev.Kind)
	if ev.Series != 0 {
		line += fmt.Sprintf(" series=%d", ev.Series)
	}
	if ev.Record != 0 {
		line += fmt.Sprintf(" record=%d", ev.Record)
	}
	if ev.Amount != 0 {
		line += fmt.Sprintf(" amount=%d", ev.Amount)
	}
	if ev.Locator != "" {
		line += fmt.Sprintf(" locator=%s", ev.Locator)
	}
	if ev.To != nil {
		line += fmt.Sprintf(" to=%s", ev.To.String())
	}
	fmt.Println(line)
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
