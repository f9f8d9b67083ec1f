// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Command focusctl runs study sessions and spends coins against a study
// economy authority.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AccelByte/extend-study-economy/pkg/authority"
	"github.com/AccelByte/extend-study-economy/pkg/authority/grpcauth"
	"github.com/AccelByte/extend-study-economy/pkg/catalog"
	"github.com/AccelByte/extend-study-economy/pkg/common"
	"github.com/AccelByte/extend-study-economy/pkg/economy"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

type options struct {
	addr        string
	user        string
	catalogPath string
	timeout     time.Duration
	baseXP      int
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, common.UserMessage(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "focusctl",
		Short:         "Study timer and coin shop client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logrus.SetLevel(logrus.WarnLevel)
			if opts.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.addr, "addr", common.GetEnv("FOCUS_AUTHORITY_ADDR", "localhost:6565"), "authority gRPC address")
	flags.StringVar(&opts.user, "user", common.GetEnv("FOCUS_USER", ""), "user id to act for")
	flags.StringVar(&opts.catalogPath, "catalog", common.GetEnv("CATALOG_PATH", "config/catalog.yaml"), "catalog file")
	flags.DurationVar(&opts.timeout, "timeout", common.GetEnvDuration("REMOTE_CALL_TIMEOUT", grpcauth.DefaultCallTimeout), "per-call timeout")
	flags.IntVar(&opts.baseXP, "base-xp", common.GetEnvInt("BASE_XP_AWARD", economy.DefaultBaseAward), "XP per verified session")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newProfileCmd(opts))
	root.AddCommand(newStoreCmd(opts))
	root.AddCommand(newStudyCmd(opts))
	root.AddCommand(newBuyCmd(opts))
	root.AddCommand(newEquipCmd(opts))
	root.AddCommand(newSubscribeCmd(opts))
	return root
}

// client is a connected ledger for one user.
type client struct {
	conn   *grpc.ClientConn
	auth   authority.Authority
	ledger *economy.Ledger
}

func connect(ctx context.Context, opts *options, out io.Writer) (*client, error) {
	if opts.user == "" {
		return nil, fmt.Errorf("a user id is required (--user or FOCUS_USER)")
	}

	items, err := catalog.Load(opts.catalogPath)
	if err != nil {
		return nil, err
	}

	conn, err := grpcauth.Dial(opts.addr)
	if err != nil {
		return nil, err
	}

	auth := grpcauth.NewClient(conn, opts.timeout).ForUser(opts.user)
	ledger := economy.NewLedger(auth, items,
		economy.WithBaseAward(opts.baseXP),
		economy.WithNotifier(economy.NotifierFunc(func(n economy.Notice) {
			_, _ = fmt.Fprintf(out, "* %s\n", n.Message)
		})),
	)
	if err := ledger.Refresh(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return &client{conn: conn, auth: auth, ledger: ledger}, nil
}

func (c *client) Close() {
	_ = c.conn.Close()
}
