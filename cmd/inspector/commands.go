package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/asterdex/astergate/internal/config"
	"github.com/asterdex/astergate/internal/manager"
	"github.com/asterdex/astergate/internal/model"
	"github.com/asterdex/astergate/internal/service"
	"github.com/asterdex/astergate/internal/signer"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

type inspectOptions struct {
	chainID    int64
	asterChain string
	baseURL    string
	params     string
	user       string
	nonce      int64
}

func newRootCmd() *cobra.Command {
	opts := &inspectOptions{}
	root := &cobra.Command{
		Use:           "inspector",
		Short:         "Inspect Aster typed-data documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.applyConfig(cmd)
		},
	}
	root.PersistentFlags().Int64Var(&opts.chainID, "chain-id", 0, "EIP-712 domain chain id (default from config)")
	root.PersistentFlags().StringVar(&opts.asterChain, "aster-chain", "", "asterChain field value (default from config)")

	root.AddCommand(
		newActionsCmd(opts),
		newNonceCmd(),
		newTypedDataCmd(opts),
		newVerifyCmd(opts),
	)
	return root
}

// applyConfig fills unset flags from the gateway configuration.
func (o *inspectOptions) applyConfig(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cmd.Flags().Changed("chain-id") {
		o.chainID = cfg.Aster.ChainID
	}
	if !cmd.Flags().Changed("aster-chain") {
		o.asterChain = cfg.Aster.Chain
	}
	o.baseURL = cfg.Aster.BaseURL
	return nil
}

func (o *inspectOptions) service() *service.SigningService {
	return service.NewSigningService(nil, manager.NewNonceGenerator(), signer.NewDomain(o.chainID), o.asterChain,
		service.WithBaseURL(o.baseURL))
}

func (o *inspectOptions) action(primaryType string) (model.Action, error) {
	raw := []byte(o.params)
	if strings.HasPrefix(o.params, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(o.params, "@"))
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return service.DecodeAction(primaryType, raw)
}

func (o *inspectOptions) addActionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.params, "params", "{}", "action fields as JSON, or @file")
	cmd.Flags().StringVar(&o.user, "user", "", "account address that signs")
	cmd.Flags().Int64Var(&o.nonce, "nonce", 0, "nonce to embed (default: a fresh one)")
	_ = cmd.MarkFlagRequired("user")
}

func newActionsCmd(opts *inspectOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List supported actions and their submission endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			svc := opts.service()
			for _, name := range service.ActionNames() {
				ep, _ := svc.Endpoint(name)
				target := ep.URL
				if target == "" {
					target = ep.Path
				}
				fmt.Fprintf(out, "%-16s %-6s %s\n", name, ep.Method, target)
			}
			return nil
		},
	}
}

func newNonceCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "nonce",
		Short: "Print fresh nonces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gen := manager.NewNonceGenerator()
			for i := 0; i < count; i++ {
				fmt.Fprintln(cmd.OutOrStdout(), gen.Next())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "how many nonces to print")
	return cmd
}

func newTypedDataCmd(opts *inspectOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "typed-data <action>",
		Short: "Print the EIP-712 document and digest for an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := opts.action(args[0])
			if err != nil {
				return err
			}
			svc := opts.service()
			nonce := opts.nonce
			if nonce == 0 {
				prepared, err := svc.PrepareAction(opts.user, action)
				if err != nil {
					return err
				}
				nonce = prepared.Nonce
			}
			doc, err := svc.Document(action, opts.user, nonce)
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), doc)
		},
	}
	opts.addActionFlags(cmd)
	return cmd
}

func newVerifyCmd(opts *inspectOptions) *cobra.Command {
	var signature string
	cmd := &cobra.Command{
		Use:   "verify <action>",
		Short: "Check that a signature over an action recovers the user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := opts.action(args[0])
			if err != nil {
				return err
			}
			payload, err := opts.service().AssemblePayload(action, opts.user, opts.nonce, signature, 0)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n%s\n", opts.user, payload.Values().Encode())
			return nil
		},
	}
	opts.addActionFlags(cmd)
	cmd.Flags().StringVar(&signature, "signature", "", "0x-prefixed 65-byte signature")
	_ = cmd.MarkFlagRequired("signature")
	_ = cmd.MarkFlagRequired("nonce")
	return cmd
}

func writeDocument(w io.Writer, doc *signer.Document) error {
	hash, _, err := doc.Digest()
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\ndigest: %s\n", body, hexutil.Encode(hash))
	return nil
}
