// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import "github.com/hpe-storage/iscsid/ierrors"

// settableParams is the set of login parameters this daemon will
// accept an override for, mirroring iscsid_copyto_param_set's switch:
// four boolean parameters, seven integer parameters, and three integer
// parameters that table carries as known IDs but always rejects
// (MaxConnections, OutstandingR2T, ErrorRecoveryLevel) because nothing
// downstream can actually apply them yet.
var settableParams = map[string]bool{
	// boolean
	"DataSequenceInOrder": true,
	"ImmediateData":       true,
	"InitialR2T":          true,
	"DataPDUInOrder":      true,
	// integer
	"HeaderDigest":               true,
	"DataDigest":                 true,
	"DefaultTime2Retain":         true,
	"DefaultTime2Wait":           true,
	"MaxRecvDataSegmentLength":   true,
	"FirstBurstLength":           true,
	"MaxBurstLength":             true,
}

// knownButUnsettableParams are recognized parameter names that the
// original table also recognizes, but for which it unconditionally
// returns EINVAL — kept as a distinct set purely so CopyToParamSet can
// give a clearer error than "unknown parameter" for them.
var knownButUnsettableParams = map[string]bool{
	"MaxConnections":      true,
	"OutstandingR2T":      true,
	"ErrorRecoveryLevel":  true,
}

// CopyToParamSet validates that key is a login parameter this daemon
// will accept an override for. It is called before a ParamOverride is
// persisted, the same gate iscsid_copyto_param_set applies before a
// parameter ever reaches iscsi_set_params.
func CopyToParamSet(key string) error {
	if settableParams[key] {
		return nil
	}
	if knownButUnsettableParams[key] {
		return ierrors.New(ierrors.InvalidArgument, "login parameter is not settable: "+key)
	}
	return ierrors.New(ierrors.InvalidArgument, "unknown login parameter: "+key)
}
