// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package util

import (
	"crypto/md5"
	"encoding/hex"
)

// GetMD5HashOfTwoStrings combines two strings into a single stable,
// opaque identifier. The bootstrap path uses it, over the hostname
// and the current time, to derive a default initiator node name when
// no initiator name has been configured yet and no MAC address can
// be read.
func GetMD5HashOfTwoStrings(a, b string) string {
	sum := md5.Sum([]byte(a + ":" + b))
	return hex.EncodeToString(sum[:])
}
