package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"dctdm/pkg/dctdm"
	"dctdm/pkg/dctdmerr"
	"dctdm/pkg/sidecar"
	"dctdm/pkg/transcode"
)

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}

var (
	// Color printers
	infoColor    = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
)

func printInfo(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", infoColor("[*]"), fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", successColor("[+]"), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", warningColor("[!]"), fmt.Sprintf(format, args...))
}

func printError(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", errorColor("[-]"), fmt.Sprintf(format, args...))
}

func usage() {
	fmt.Println("dctdm - DCT difference modulation steganography")
	fmt.Println("---------------------------------")
	fmt.Println("Usage:")
	fmt.Println("  dctdm embed   -cover <file> -message <text> [-password P] [-delta D] [-out file]")
	fmt.Println("  dctdm extract -stego <file> [-password P] [-delta D]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "embed":
		err = runEmbed(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		printError("%v", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var kindErr *dctdmerr.Error
	if !errors.As(err, &kindErr) {
		return 1
	}
	switch kindErr.Kind {
	case dctdmerr.PasswordRequired:
		return 2
	case dctdmerr.DecryptionFailed:
		return 3
	case dctdmerr.CapacityExceeded:
		return 4
	default:
		return 1
	}
}

func runEmbed(args []string) error {
	fs := newFlagSet("embed")
	coverPath := fs.String("cover", "", "Path to the cover image")
	message := fs.String("message", "", "Message text to embed")
	password := fs.String("password", "", "Password to encrypt the payload with")
	delta := fs.Int("delta", 10, "Quantization step delta")
	outPath := fs.String("out", "", "Output path for the stego JPEG (default: <cover>.stego.jpg)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *coverPath == "" || *message == "" {
		usage()
		os.Exit(1)
	}

	printInfo("Reading cover image: %s", *coverPath)
	raw, err := os.ReadFile(*coverPath)
	if err != nil {
		return dctdmerr.New(dctdmerr.IOError, "cmd.runEmbed", err)
	}

	cover, err := transcode.ToBaselineJPEG(raw)
	if err != nil {
		return err
	}

	opts := dctdm.Options{Delta: *delta, Password: *password}
	printInfo("Embedding %d characters with delta=%d", len([]rune(*message)), *delta)
	result, err := dctdm.EmbedMessage(cover, *message, opts)
	if err != nil {
		return err
	}

	dest := *outPath
	if dest == "" {
		dest = defaultOutputPath(*coverPath)
	}
	if err := os.WriteFile(dest, result.JPEG, 0o644); err != nil {
		return dctdmerr.New(dctdmerr.IOError, "cmd.runEmbed", err)
	}
	if err := sidecar.Write(dest, result.Sidecar); err != nil {
		return err
	}

	printSuccess("Wrote stego image to %s", dest)
	if result.Sidecar.Encrypted {
		printInfo("Payload is password-protected; keep %s alongside the image", sidecar.PathFor(dest))
	}
	return nil
}

func runExtract(args []string) error {
	fs := newFlagSet("extract")
	stegoPath := fs.String("stego", "", "Path to the stego image")
	password := fs.String("password", "", "Password to decrypt the payload with")
	delta := fs.Int("delta", 10, "Quantization step delta")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *stegoPath == "" {
		usage()
		os.Exit(1)
	}

	printInfo("Reading stego image: %s", *stegoPath)
	raw, err := os.ReadFile(*stegoPath)
	if err != nil {
		return dctdmerr.New(dctdmerr.IOError, "cmd.runExtract", err)
	}

	rec, err := sidecar.Read(*stegoPath)
	if err != nil {
		return err
	}
	if rec.Encrypted && *password == "" {
		printWarning("Sidecar reports an encrypted payload; pass -password")
	}

	opts := dctdm.Options{Delta: *delta, Password: *password}
	message, err := dctdm.ExtractMessage(raw, rec, opts)
	if err != nil {
		return err
	}

	printSuccess("Recovered message (%d characters):", len([]rune(message)))
	fmt.Println(message)
	return nil
}

func defaultOutputPath(coverPath string) string {
	ext := filepath.Ext(coverPath)
	base := strings.TrimSuffix(coverPath, ext)
	return base + ".stego.jpg"
}
