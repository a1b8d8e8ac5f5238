package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/uuid"

	"lightning-gateway/internal/config"
	"lightning-gateway/internal/domain/entities"
	domainrepo "lightning-gateway/internal/domain/repositories"
)

func TestGenerateRandomHex(t *testing.T) {
	v, err := generateRandomHex(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v) != 32 {
		t.Fatalf("expected len 32 got %d", len(v))
	}
}

func TestResolvePassword(t *testing.T) {
	pw, generated, err := resolvePassword("explicit")
	if err != nil || pw != "explicit" || generated {
		t.Fatalf("unexpected result: pw=%s generated=%v err=%v", pw, generated, err)
	}

	pw, generated, err = resolvePassword("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !generated || len(pw) != 24 {
		t.Fatalf("expected a 24-char generated password, got %q (generated=%v)", pw, generated)
	}
}

func TestParseAllowedIPs(t *testing.T) {
	if got := parseAllowedIPs(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	got := parseAllowedIPs("10.0.0.1, 10.0.0.2 ,")
	want := []string{"10.0.0.1", "10.0.0.2"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected parse result: %v", got)
	}
}

func TestMain_ExitsWhenMachineIDMissing(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_ADMIN_USER") == "1" {
		os.Args = []string{"adminuser"}
		main()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestMain_ExitsWhenMachineIDMissing")
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_ADMIN_USER=1")
	if err := cmd.Run(); err == nil {
		t.Fatal("expected helper process to fail when --machine-id is missing")
	}
}

func TestMain_ExitsOnDBConnectionFailure(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_ADMIN_USER") == "2" {
		os.Args = []string{"adminuser", "-machine-id", "kiosk-1"}
		main()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestMain_ExitsOnDBConnectionFailure")
	cmd.Env = append(os.Environ(),
		"GO_WANT_HELPER_ADMIN_USER=2",
		"DB_HOST=127.0.0.1",
		"DB_PORT=1",
		"DB_USER=postgres",
		"DB_PASSWORD=postgres",
		"DB_NAME=lightning_gateway",
		"DB_SSLMODE=disable",
	)
	if err := cmd.Run(); err == nil {
		t.Fatal("expected helper process to fail on DB connection")
	}
}

type fakeClientRepoCmd struct {
	createErr error
	created   *entities.Client
}

func (f *fakeClientRepoCmd) Create(ctx context.Context, client *entities.Client) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = client
	return nil
}

func (f *fakeClientRepoCmd) GetByID(ctx context.Context, id uuid.UUID) (*entities.Client, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClientRepoCmd) GetByMachineID(ctx context.Context, machineID string) (*entities.Client, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClientRepoCmd) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}

type nopCloserCmd struct{}

func (nopCloserCmd) Close() error { return nil }

func TestRunAdminUser_SuccessWithGeneratedPassword(t *testing.T) {
	repo := &fakeClientRepoCmd{}
	var buf bytes.Buffer

	err := runAdminUser([]string{"-machine-id", "kiosk-42"}, adminUserDeps{
		loadEnv: func() error { return nil },
		loadCfg: func() *config.Config { return &config.Config{} },
		prepare: func(cfg *config.Config) (domainrepo.ClientRepository, io.Closer, error) {
			return repo, nopCloserCmd{}, nil
		},
		out: &buf,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.created == nil || repo.created.MachineID != "kiosk-42" {
		t.Fatalf("expected client to be created with machine id kiosk-42, got %+v", repo.created)
	}
	if !strings.Contains(buf.String(), "password=") {
		t.Fatalf("expected generated password to be printed, got: %s", buf.String())
	}
}

func TestRunAdminUser_MissingMachineID(t *testing.T) {
	err := runAdminUser([]string{}, adminUserDeps{
		loadEnv: func() error { return nil },
		loadCfg: func() *config.Config { return &config.Config{} },
	})
	if err == nil {
		t.Fatal("expected error for missing --machine-id")
	}
}

func TestRunAdminUser_RepositoryError(t *testing.T) {
	repo := &fakeClientRepoCmd{createErr: errors.New("duplicate machine id")}
	err := runAdminUser([]string{"-machine-id", "kiosk-1", "-password", "explicit-pw"}, adminUserDeps{
		loadEnv: func() error { return nil },
		loadCfg: func() *config.Config { return &config.Config{} },
		prepare: func(cfg *config.Config) (domainrepo.ClientRepository, io.Closer, error) {
			return repo, nopCloserCmd{}, nil
		},
	})
	if err == nil {
		t.Fatal("expected repository error to propagate")
	}
}
