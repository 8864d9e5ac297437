package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Snider/Fabric/internal/ownership"
	"github.com/Snider/Fabric/internal/peersvc"
	"github.com/spf13/cobra"
)

var (
	ownerTrackerAddr string
	ownerID          string
	ownerAddress     string
	ownerStoragePeers string

	uploadFile           string
	downloadFile         string
	downloadOut          string
	downloadOwnerAddress string
	deleteFile           string
)

var ownerCmd = &cobra.Command{
	Use:   "owner",
	Short: "Upload, download, and delete owner-encrypted files",
	Long: `The owner commands drive the tracker-mediated, per-owner encrypted
file lifecycle directly from the CLI, without running a full peer node.`,
}

var ownerUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Encrypt and upload a local file under this owner's identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		plaintext, err := os.ReadFile(uploadFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", uploadFile, err)
		}
		targets, err := parsePeerCandidates(ownerStoragePeers)
		if err != nil {
			return err
		}
		lc := peersvc.NewOwnerLifecycle(ownerTrackerAddr)
		filename := filepath.Base(uploadFile)
		if err := lc.Upload(context.Background(), filename, plaintext, ownerID, ownerAddress, targets); err != nil {
			return fmt.Errorf("upload %s: %w", filename, err)
		}
		fmt.Printf("Uploaded %s (%d bytes) as owner %s\n", filename, len(plaintext), ownerID)
		return nil
	},
}

var ownerDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download and decrypt a previously uploaded owned file",
	RunE: func(cmd *cobra.Command, args []string) error {
		lc := peersvc.NewOwnerLifecycle(ownerTrackerAddr)
		plaintext, err := lc.Download(context.Background(), downloadFile, ownerID, downloadOwnerAddress)
		if err != nil {
			return fmt.Errorf("download %s: %w", downloadFile, err)
		}
		out := downloadOut
		if out == "" {
			out = downloadFile
		}
		if err := os.WriteFile(out, plaintext, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Printf("Downloaded %s (%d bytes) to %s\n", downloadFile, len(plaintext), out)
		return nil
	},
}

var ownerDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a previously uploaded owned file from all storage peers",
	RunE: func(cmd *cobra.Command, args []string) error {
		lc := peersvc.NewOwnerLifecycle(ownerTrackerAddr)
		if err := lc.Delete(context.Background(), deleteFile, ownerID); err != nil {
			return fmt.Errorf("delete %s: %w", deleteFile, err)
		}
		fmt.Printf("Deleted %s for owner %s\n", deleteFile, ownerID)
		return nil
	},
}

func parsePeerCandidates(s string) ([]ownership.PeerCandidate, error) {
	var out []ownership.PeerCandidate
	for _, addr := range strings.Split(s, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		out = append(out, ownership.PeerCandidate{Address: addr})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("--storage-peers must name at least one storage peer address")
	}
	return out, nil
}

func init() {
	ownerCmd.PersistentFlags().StringVar(&ownerTrackerAddr, "tracker", "127.0.0.1:8420", "tracker address")
	ownerCmd.PersistentFlags().StringVar(&ownerID, "owner-id", "", "owner identifier")

	ownerUploadCmd.Flags().StringVar(&uploadFile, "file", "", "local plaintext file to upload")
	ownerUploadCmd.Flags().StringVar(&ownerAddress, "owner-address", "", "this owner's current network address, cached for later key derivation")
	ownerUploadCmd.Flags().StringVar(&ownerStoragePeers, "storage-peers", "", "comma-separated storage peer addresses to upload ciphertext to")
	ownerUploadCmd.MarkFlagRequired("file")
	ownerUploadCmd.MarkFlagRequired("owner-address")
	ownerUploadCmd.MarkFlagRequired("storage-peers")

	ownerDownloadCmd.Flags().StringVar(&downloadFile, "file", "", "filename previously uploaded")
	ownerDownloadCmd.Flags().StringVar(&downloadOut, "out", "", "local path to write the decrypted bytes (default: same as --file)")
	ownerDownloadCmd.Flags().StringVar(&downloadOwnerAddress, "owner-address", "", "the address this owner was registered under at upload time; required unless downloading in the same process that did the upload")
	ownerDownloadCmd.MarkFlagRequired("file")
	ownerDownloadCmd.MarkFlagRequired("owner-address")

	ownerDeleteCmd.Flags().StringVar(&deleteFile, "file", "", "filename previously uploaded")
	ownerDeleteCmd.MarkFlagRequired("file")

	ownerCmd.AddCommand(ownerUploadCmd, ownerDownloadCmd, ownerDeleteCmd)
	rootCmd.AddCommand(ownerCmd)
}
