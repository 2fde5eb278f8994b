package isolation

// NSExecMarker is the argv[0]-following sentinel that tells main() to
// dispatch into NSExecEntrypoint instead of starting the daemon. The
// Linux-namespace backend re-execs the running binary with this marker
// prepended to the sandboxed argv so the seccomp filter installs inside
// the process it will bind to.
const NSExecMarker = "__crustyclaw_ns_exec__"
