package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yfetch/perplexity-proxy/internal/auth"
	"github.com/yfetch/perplexity-proxy/internal/config"
	"github.com/yfetch/perplexity-proxy/internal/logger"
	"go.uber.org/zap"
)

// runCheckToken resolves a token through the identity service, the same way
// the relay endpoint does, and prints the result.
func runCheckToken(cmd *cobra.Command, token string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 开发模式日志（控制台输出，包含debug级别）
	log, err := logger.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	if cfg.Auth.URL == "" {
		log.Warn("SUPABASE_URL is not set, verification will fail")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Auth.Timeout)
	defer cancel()

	client := auth.NewClient(cfg.Auth, log)
	user, err := client.GetUser(ctx, token)
	if err != nil {
		log.Error("Token verification failed", zap.Error(err))
		return err
	}

	fmt.Println("\n✅ Token is valid")
	fmt.Printf("   User ID: %s\n", user.ID)
	fmt.Printf("   Email: %s\n", user.Email)
	fmt.Printf("   Role: %s\n", user.Role)

	return nil
}
