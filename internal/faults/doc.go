// Package faults defines the error taxonomy shared by the credential
// lifecycle, the calendar gateway, and the tool dispatcher.
//
// Every failure that can reach a remote client is classified by a Kind
// and carries a retryable flag, so clients can distinguish "fix your
// request" from "resubmit later" from "re-run authorization".
package faults
