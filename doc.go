// Package winrm provides a Go client for Windows Remote Management
// (WinRM): WSMan/SOAP transport, SPNEGO authentication with WinRM
// message encryption, a WinRS remote-shell engine, and CIM-based
// registry and service accessors.
//
// # Architecture
//
// The library is organized into layers:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  winrmclient         Endpoint parsing + convenience API  │
//	├──────────────────────────┬────────────────┬──────────────┤
//	│  winrs  remote shell     │ registry (CIM) │ services(CIM)│
//	├──────────────────────────┴────────────────┴──────────────┤
//	│  wsman         WS-Management SOAP protocol engine        │
//	├─────────────────────────────────────────────────────────┤
//	│  wsman/auth    Basic/NTLM/Kerberos + message encryption  │
//	├─────────────────────────────────────────────────────────┤
//	│  wsman/transport  HTTP(S) transport                      │
//	└─────────────────────────────────────────────────────────┘
//
// # Quick Start
//
//	cfg := winrmclient.Config{
//	    Endpoint: "https://server:5986/wsman",
//	    Username: "administrator",
//	    Password: "password",
//	    AuthType: winrmclient.AuthNTLM,
//	}
//	c, err := winrmclient.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stdout, _, _, err := c.RunCommand(ctx, "whoami")
package winrm
