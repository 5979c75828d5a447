package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"blockjack-backend/internal/confidential"
	"blockjack-backend/internal/config"
)

func runOracle(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	if cfg.OracleSecretKey == "" {
		return errors.New("ORACLE_SECRET_KEY is required, see the keygen command")
	}
	kp, err := confidential.ParseSecretKey(cfg.OracleSecretKey)
	if err != nil {
		return err
	}

	nc, err := confidential.Connect(cfg.NATSURL, "blockjack-oracle")
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	server := confidential.NewOracleServer(nc, confidential.NewOracle(kp), log)
	if err := server.Start(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"nats": cfg.NATSURL, "public_key": kp.PublicHex()}).Info("oracle started")

	<-ctx.Done()
	server.Stop()
	log.Info("oracle stopped")
	return nil
}
