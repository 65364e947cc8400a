// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package util

import "net"

// GetFirstMAC returns the hardware address of the first non-loopback
// network interface with a non-empty MAC, used when synthesizing a
// default initiator node name at bootstrap.
func GetFirstMAC() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String(), nil
	}
	return "", nil
}
