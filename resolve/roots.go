package resolve

// RootServers is the fixed, process-wide, immutable list of the 13 IANA
// root server addresses, in the order spec.md §6 declares them. Unlike the
// teacher, which discovers root servers at runtime from the operating
// system's resolver (root_nix.go/root_windows.go), spec.md §4.C requires a
// static constant list — discovery is not performed, so there is no
// platform-specific counterpart to port here.
var RootServers = []string{
	"198.41.0.4",     // a.root-servers.net
	"199.9.14.201",   // b.root-servers.net
	"192.33.4.12",    // c.root-servers.net
	"199.7.91.13",    // d.root-servers.net
	"192.203.230.10", // e.root-servers.net
	"192.5.5.241",    // f.root-servers.net
	"192.112.36.4",   // g.root-servers.net
	"198.97.190.53",  // h.root-servers.net
	"192.36.148.17",  // i.root-servers.net
	"192.58.128.30",  // j.root-servers.net
	"193.0.14.129",   // k.root-servers.net
	"199.7.83.42",    // l.root-servers.net
	"202.12.27.33",   // m.root-servers.net
}
