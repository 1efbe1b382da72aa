// Package relay implements real-time multi-room chat over WebSocket.
//
// It keeps connection lifecycle, command dispatch, and broadcast fan-out
// isolated behind room and session types so transport concerns never leak
// into room state.
package relay
