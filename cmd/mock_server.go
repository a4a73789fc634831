package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/takutakahashi/authclient/pkg/logger"
	"github.com/takutakahashi/authclient/pkg/mockapi"
)

var (
	mockPort         string
	mockSecret       string
	mockAccessTTL    time.Duration
	mockRefreshDelay time.Duration
)

var MockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run a local backend that issues short-lived credentials",
	Long: `Run a development backend implementing /auth/login, /auth/refresh,
/auth/logout, /me and /jobs under /api.

Access tokens expire after --access-ttl and refresh tokens are single use,
which makes credential renewal easy to observe. Accounts:
  candidate@example.com / password
  company@example.com / password`,
	RunE: runMockServer,
}

func init() {
	MockServerCmd.Flags().StringVar(&mockPort, "port", "4000", "Port to listen on")
	MockServerCmd.Flags().StringVar(&mockSecret, "secret", "", "Token signing secret (random when empty)")
	MockServerCmd.Flags().DurationVar(&mockAccessTTL, "access-ttl", time.Minute, "Access token lifetime")
	MockServerCmd.Flags().DurationVar(&mockRefreshDelay, "refresh-delay", 0, "Delay added to every refresh response")
}

func runMockServer(cmd *cobra.Command, args []string) error {
	level := "info"
	if viper.GetBool("verbose") {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level})
	if err != nil {
		return err
	}

	server := mockapi.New(mockapi.Options{
		Secret:       []byte(mockSecret),
		AccessTTL:    mockAccessTTL,
		RefreshDelay: mockRefreshDelay,
		Logger:       log,
	})
	defer server.Close()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":       mockPort,
			"access_ttl": mockAccessTTL,
		}).Infof("mock backend listening on http://localhost:%s%s", mockPort, mockapi.DefaultBasePath)
		if err := server.Start(":" + mockPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}

	log.Info("shutdown signal received, shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	log.Info("server shutdown complete")
	return nil
}
