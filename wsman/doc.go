// Package wsman implements a WS-Management (WSMan) client for communicating
// with WinRM endpoints.
//
// It builds and sends SOAP 1.2/WS-Addressing envelopes over an HTTP(S)
// transport, decoding SOAP and WSMan faults into typed errors, and
// exposes the operations the rest of this module is built on:
//
//   - Create, Command, Send, Receive, Signal, Delete: the WinRS
//     remote-shell verbs, consumed by the winrs package.
//   - Get, Enumerate, Invoke: generic WS-Transfer/WS-Enumeration
//     operations against a resource URI, consumed by the CIM-based
//     registry and services packages.
//   - Identify: the WSMan Identify handshake.
//
// # Subpackages
//
//   - auth: SPNEGO/NTLM/Basic authentication and WinRM message encryption
//   - transport: HTTP/TLS transport layer
package wsman
