// Command winrm-cli is a small smoke-test client for exercising a
// WinRM endpoint from the command line.
//
// Password can be provided via:
//   - -pass flag (least secure, visible in process list)
//   - WINRM_PASSWORD environment variable (recommended)
//   - stdin prompt (if neither flag nor env var is set)
//
// Usage:
//
//	winrm-cli -server <hostname> -user <username> -run "whoami"
//
// Examples:
//
//	export WINRM_PASSWORD='secret'
//	winrm-cli -server myserver -user admin -run "ipconfig /all"
//
//	winrm-cli -server myserver -user admin -ntlm -run "dir C:\\"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/smnsjas/go-winrm/winrmclient"
	"golang.org/x/term"
)

func main() {
	server := flag.String("server", "", "WinRM server hostname")
	username := flag.String("user", "", "Username for authentication")
	password := flag.String("pass", "", "Password (prefer WINRM_PASSWORD env var)")
	run := flag.String("run", "", "Command to execute, e.g. \"whoami\"")
	useTLS := flag.Bool("tls", false, "Use HTTPS (port 5986)")
	insecure := flag.Bool("insecure", false, "Skip TLS certificate verification")
	timeout := flag.Duration("timeout", 60*time.Second, "Operation timeout")
	useNTLM := flag.Bool("ntlm", false, "Use NTLM authentication instead of Basic")
	useKerberos := flag.Bool("kerberos", false, "Use Kerberos authentication")
	realm := flag.String("realm", "", "Kerberos realm (e.g. EXAMPLE.COM)")
	spn := flag.String("spn", "", "Service Principal Name for Kerberos")
	flag.Parse()

	if *server == "" || *username == "" || *run == "" {
		fmt.Fprintln(os.Stderr, "usage: winrm-cli -server <host> -user <user> -run <command>")
		os.Exit(2)
	}

	pass := *password
	if pass == "" {
		pass = os.Getenv("WINRM_PASSWORD")
	}
	if pass == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read password: %v\n", err)
			os.Exit(1)
		}
		pass = string(b)
	}

	scheme := "http"
	if *useTLS {
		scheme = "https"
	}

	authType := winrmclient.AuthBasic
	switch {
	case *useKerberos:
		authType = winrmclient.AuthKerberos
	case *useNTLM:
		authType = winrmclient.AuthNTLM
	}

	cfg := winrmclient.Config{
		Endpoint:           fmt.Sprintf("%s://%s", scheme, *server),
		Username:           *username,
		Password:           pass,
		AuthType:           authType,
		Realm:              *realm,
		SPN:                *spn,
		InsecureSkipVerify: *insecure,
		Timeout:            *timeout,
	}

	client, err := winrmclient.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stdout, stderr, exitCode, err := client.RunCommand(ctx, "cmd.exe", "/c", *run)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run command: %v\n", err)
		os.Exit(1)
	}

	os.Stdout.Write(stdout)
	os.Stderr.Write(stderr)
	os.Exit(exitCode)
}
