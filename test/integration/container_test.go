//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const defaultPostgresImage = "postgres:16-alpine"

// startPostgresContainer runs a disposable postgres through the docker CLI.
// Docker assigns the host port; MEDREF_TEST_POSTGRES_IMAGE overrides the image.
func startPostgresContainer(ctx context.Context) (string, func(), error) {
	image := os.Getenv("MEDREF_TEST_POSTGRES_IMAGE")
	if image == "" {
		image = defaultPostgresImage
	}

	out, err := exec.CommandContext(ctx, "docker", "run", "-d", "--rm",
		"--label", "medref.integration=true",
		"-p", "127.0.0.1::5432",
		"-e", "POSTGRES_USER=medref",
		"-e", "POSTGRES_PASSWORD=medref",
		"-e", "POSTGRES_DB=medref_test",
		image,
	).CombinedOutput()
	if err != nil {
		return "", nil, fmt.Errorf("docker run %s: %w: %s", image, err, strings.TrimSpace(string(out)))
	}
	id := strings.TrimSpace(string(out))
	stop := func() {
		_ = exec.Command("docker", "stop", "-t", "2", id).Run()
	}

	hostPort, err := publishedPort(ctx, id)
	if err != nil {
		stop()
		return "", nil, err
	}

	dsn := fmt.Sprintf("postgres://medref:medref@%s/medref_test?sslmode=disable", hostPort)
	if err := awaitReady(ctx, dsn, 30*time.Second); err != nil {
		stop()
		return "", nil, err
	}
	return dsn, stop, nil
}

// publishedPort reads back the host address docker bound to 5432.
func publishedPort(ctx context.Context, id string) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", "port", id, "5432/tcp").Output()
	if err != nil {
		return "", fmt.Errorf("docker port %s: %w", id, err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if _, port, err := net.SplitHostPort(strings.TrimSpace(line)); err == nil && port != "" {
			return net.JoinHostPort("127.0.0.1", port), nil
		}
	}
	return "", fmt.Errorf("no host port published for container %s: %q", id, out)
}

// awaitReady polls until a query succeeds. The image restarts the server once
// after init, so an accepted connection alone is not enough.
func awaitReady(ctx context.Context, dsn string, limit time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	var lastErr error
	for {
		if lastErr = querySelectOne(ctx, dsn); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready within %v: %w", limit, lastErr)
		case <-tick.C:
		}
	}
}

func querySelectOne(ctx context.Context, dsn string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	var one int
	return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
}
