package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"lightning-gateway/internal/config"
	"lightning-gateway/internal/domain/entities"
	domainrepo "lightning-gateway/internal/domain/repositories"
	datasourcepostgres "lightning-gateway/internal/infrastructure/datasources/postgres"
	"lightning-gateway/internal/infrastructure/repositories"
	"lightning-gateway/pkg/crypto"
)

var openAdminUserDB = datasourcepostgres.NewConnection

type adminUserDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	prepare func(cfg *config.Config) (domainrepo.ClientRepository, io.Closer, error)
	out     io.Writer
}

func defaultAdminUserDeps() adminUserDeps {
	return adminUserDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(cfg *config.Config) (domainrepo.ClientRepository, io.Closer, error) {
			db, err := openAdminUserDB(cfg.Database)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to connect db: %w", err)
			}
			return repositories.NewClientRepository(db), db, nil
		},
		out: os.Stdout,
	}
}

func generateRandomHex(n int) (string, error) {
	b := make([]byte, n/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func resolvePassword(input string) (string, bool, error) {
	if input != "" {
		return input, false, nil
	}
	generated, err := generateRandomHex(24)
	if err != nil {
		return "", false, fmt.Errorf("failed to generate password: %w", err)
	}
	return generated, true, nil
}

func parseAllowedIPs(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	ips := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ips = append(ips, trimmed)
		}
	}
	return ips
}

// runAdminUser provisions a new kiosk client: it hashes (or generates
// and hashes) a password and inserts the client row directly, the way
// an operator would seed a terminal's credentials before first boot.
func runAdminUser(args []string, deps adminUserDeps) error {
	if deps.loadEnv == nil {
		deps.loadEnv = func() error { return godotenv.Load() }
	}
	if deps.loadCfg == nil {
		deps.loadCfg = config.Load
	}
	if deps.prepare == nil {
		def := defaultAdminUserDeps()
		deps.prepare = def.prepare
	}
	if deps.out == nil {
		deps.out = os.Stdout
	}

	fs := flag.NewFlagSet("adminuser", flag.ContinueOnError)
	machineIDFlag := fs.String("machine-id", "", "kiosk machine id (required)")
	passwordFlag := fs.String("password", "", "client password (generated if omitted)")
	allowedIPsFlag := fs.String("allowed-ips", "", "comma-separated source IP allow-list (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *machineIDFlag == "" {
		return fmt.Errorf("--machine-id is required")
	}

	password, generated, err := resolvePassword(*passwordFlag)
	if err != nil {
		return err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := deps.loadCfg()
	clients, closer, err := deps.prepare(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	client := &entities.Client{
		ID:               uuid.Must(uuid.NewV7()),
		MachineID:        *machineIDFlag,
		PasswordHash:     hash,
		Active:           true,
		AllowedSourceIPs: parseAllowedIPs(*allowedIPsFlag),
	}

	ctx := context.Background()
	if err := clients.Create(ctx, client); err != nil {
		return fmt.Errorf("failed creating client: %w", err)
	}

	fmt.Fprintln(deps.out, "Provisioned client")
	fmt.Fprintf(deps.out, "client_id=%s\n", client.ID.String())
	fmt.Fprintf(deps.out, "machine_id=%s\n", client.MachineID)
	if generated {
		fmt.Fprintf(deps.out, "password=%s\n", password)
	}
	return nil
}

func main() {
	if err := runAdminUser(os.Args[1:], defaultAdminUserDeps()); err != nil {
		log.Fatal(err)
	}
}
