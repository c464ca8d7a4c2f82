package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/spf13/cobra"

	"github.com/filechain/filechain/pkg/filechain"
	"github.com/filechain/filechain/pkg/filechain/config"
)

// cliConfig extends the shared configuration with the metadata API
// location the CLI talks to.
type cliConfig struct {
	MetadataURL string `env:"METADATA_URL" env-default:"http://localhost:8080"`
	Pinning     config.PinningConfig
	Ledger      config.LedgerConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "filechain: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filechain",
		Short: "FileChain decentralized storage CLI",
		Long: `FileChain CLI pins files to an IPFS pinning service, anchors the content
identifier on the ledger, and records metadata in the FileChain backend.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newUploadCmd(),
		newListCmd(),
		newGetCmd(),
		newVerifyCmd(),
	)
	return cmd
}

func loadConfig() (*cliConfig, error) {
	var cfg cliConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	return &cfg, nil
}

func newUploadCmd() *cobra.Command {
	var fileID string
	var permissions string
	var uploader string
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Pin a file, anchor its CID on the ledger, and record metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			pinner, err := cfg.Pinning.BuildClient()
			if err != nil {
				return err
			}
			anchorer, err := cfg.Ledger.BuildClient()
			if err != nil {
				return err
			}
			metadata := NewServiceClient(cfg.MetadataURL, nil)

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer file.Close()

			info, err := file.Stat()
			if err != nil {
				return fmt.Errorf("failed to stat file: %w", err)
			}

			if fileID == "" {
				fileID = filepath.Base(args[0])
			}
			if uploader == "" {
				uploader = anchorer.SignerAddress()
			}

			orchestrator, err := filechain.NewOrchestrator(pinner, anchorer, metadata,
				filechain.WithStateFunc(func(state filechain.WorkflowState) {
					fmt.Printf("=> %s\n", state)
				}),
				filechain.WithProgressFunc(func(percent float64) {
					fmt.Printf("\ruploading... %3.0f%%", percent)
					if percent >= 100 {
						fmt.Println()
					}
				}),
			)
			if err != nil {
				return err
			}

			result, err := orchestrator.Run(ctx, filechain.UploadRequest{
				FileID:      fileID,
				FileName:    info.Name(),
				Permissions: permissions,
				Uploader:    uploader,
				Reader:      file,
				Size:        info.Size(),
			})
			if err != nil {
				return err
			}

			fmt.Printf("file_id:  %s\n", result.Record.FileID)
			fmt.Printf("cid:      %s\n", result.CID)
			fmt.Printf("gateway:  %s\n", pinner.GatewayURL(result.CID))
			fmt.Printf("tx_id:    %s (round %d)\n", result.Receipt.TxID, result.Receipt.ConfirmedRound)
			return nil
		},
	}
	cmd.Flags().StringVar(&fileID, "file-id", "", "File identifier (defaults to the file name)")
	cmd.Flags().StringVar(&permissions, "permissions", "public", "Record visibility: public or private")
	cmd.Flags().StringVar(&uploader, "uploader", "", "Uploader identity (defaults to the signer address)")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List file records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			records, err := NewServiceClient(cfg.MetadataURL, nil).ListFiles(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILE ID\tCID\tPERMISSIONS\tUPLOADER\tCREATED")
			for _, record := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					record.FileID, record.CID, record.Permissions,
					record.Uploader, record.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <file-id>",
		Short: "Show the record for a file id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			record, err := NewServiceClient(cfg.MetadataURL, nil).GetFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("file_id:     %s\n", record.FileID)
			fmt.Printf("cid:         %s\n", record.CID)
			fmt.Printf("permissions: %s\n", record.Permissions)
			fmt.Printf("uploader:    %s\n", record.Uploader)
			fmt.Printf("created_at:  %s\n", record.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file-id>",
		Short: "Read the on-chain anchor for a file id and compare it with the record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			anchorer, err := cfg.Ledger.BuildClient()
			if err != nil {
				return err
			}

			anchored, err := anchorer.VerifyAnchor(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("anchored cid:         %s\n", anchored.CID)
			fmt.Printf("anchored permissions: %s\n", anchored.Permissions)

			record, err := NewServiceClient(cfg.MetadataURL, nil).GetFile(ctx, args[0])
			if err != nil {
				fmt.Printf("metadata record:      unavailable (%v)\n", err)
				return nil
			}
			if record.CID == anchored.CID && record.Permissions == anchored.Permissions {
				fmt.Println("metadata record:      matches anchor")
			} else {
				fmt.Printf("metadata record:      MISMATCH (cid %s, permissions %s)\n",
					record.CID, record.Permissions)
			}
			return nil
		},
	}
}
