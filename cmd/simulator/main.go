package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

var (
	serverURL    = flag.String("server", "http://localhost:8080", "API base URL")
	feedURL      = flag.String("feed", "ws://localhost:8080/ws/market", "Market feed WebSocket URL")
	email        = flag.String("email", "sim@voltmesh.io", "Account email")
	password     = flag.String("password", "simulator-pass", "Account password")
	region       = flag.String("region", "CA", "Grid region")
	source       = flag.String("source", "solar", "Energy source for production readings")
	produceKWh   = flag.Float64("produce", 50.0, "Production per interval (kWh)")
	offerKWh     = flag.Int64("offer", 500, "Energy per offer (kWh)")
	pricePerUnit = flag.Int64("price", 3, "Offer price per kWh (minor currency units)")
	interval     = flag.Duration("interval", 30*time.Second, "Production interval")
	interactive  = flag.Bool("interactive", false, "Enable interactive mode")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	config := &SimulatorConfig{
		ServerURL:    *serverURL,
		FeedURL:      *feedURL,
		Email:        *email,
		Password:     *password,
		Region:       *region,
		Source:       *source,
		ProduceKWh:   *produceKWh,
		OfferKWh:     *offerKWh,
		PricePerUnit: *pricePerUnit,
		Interval:     *interval,
	}

	simulator := NewSimulator(config, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down simulator...")
		simulator.Stop()
		os.Exit(0)
	}()

	if err := simulator.Connect(); err != nil {
		logger.Fatal("Failed to connect", zap.Error(err))
	}
	simulator.Run()

	if *interactive {
		runInteractiveMode(simulator)
		simulator.Stop()
		return
	}

	fmt.Println("VoltMesh participant simulator started")
	fmt.Printf("  Server: %s\n", *serverURL)
	fmt.Printf("  Region: %s, source: %s\n", *region, *source)
	fmt.Println("\nPress Ctrl+C to stop")
	select {}
}

func runInteractiveMode(sim *Simulator) {
	fmt.Println("\nVoltMesh Participant Simulator - Interactive Mode")
	fmt.Println("=================================================")
	fmt.Println("Commands:")
	fmt.Println("  accept <offerID> <kWh>  - Buy energy from an offer")
	fmt.Println("  deposit <amount>        - Credit the wallet")
	fmt.Println("  balance                 - Show wallet balance")
	fmt.Println("  quit                    - Exit simulator")
	fmt.Println("")

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")

	for scanner.Scan() {
		parts := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(parts) == 0 {
			fmt.Print("> ")
			continue
		}

		switch parts[0] {
		case "accept":
			if len(parts) < 3 {
				fmt.Println("Usage: accept <offerID> <kWh>")
				break
			}
			offerID, _ := strconv.ParseUint(parts[1], 10, 64)
			energy, _ := strconv.ParseInt(parts[2], 10, 64)
			if err := sim.AcceptOffer(offerID, energy); err != nil {
				fmt.Printf("Accept failed: %v\n", err)
			} else {
				fmt.Printf("Bought %d kWh from offer %d\n", energy, offerID)
			}

		case "deposit":
			if len(parts) < 2 {
				fmt.Println("Usage: deposit <amount>")
				break
			}
			amount, _ := strconv.ParseInt(parts[1], 10, 64)
			if err := sim.Deposit(amount); err != nil {
				fmt.Printf("Deposit failed: %v\n", err)
			} else {
				fmt.Printf("Deposited %d\n", amount)
			}

		case "balance":
			balance, err := sim.Balance()
			if err != nil {
				fmt.Printf("Balance failed: %v\n", err)
			} else {
				fmt.Printf("Balance: %d\n", balance)
			}

		case "quit", "exit":
			fmt.Println("Goodbye!")
			return

		default:
			fmt.Printf("Unknown command: %s\n", parts[0])
		}

		fmt.Print("> ")
	}
}
