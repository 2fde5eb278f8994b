package auth

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// LocalIdentity is the local-OS principal detected for the current
// process: uid/gid from the kernel, username from the environment.
type LocalIdentity struct {
	Username     string
	UID          uint32
	GID          uint32
	IsPrivileged bool
}

// DefaultRole returns "admin" for a privileged identity, else the
// identity's username.
func (id LocalIdentity) DefaultRole() string {
	if id.IsPrivileged {
		return RoleAdmin
	}
	return id.Username
}

// DetectLocalIdentity reads /proc/self/status for uid/gid on Unix and
// falls back to USER/LOGNAME for the display name. On platforms without
// procfs it falls back to USERNAME/USER with uid=gid=0, unprivileged.
func DetectLocalIdentity() LocalIdentity {
	uid, gid, ok := readProcSelfStatus()
	if !ok {
		return LocalIdentity{
			Username:     envOr("USERNAME", envOr("USER", "unknown")),
			UID:          0,
			GID:          0,
			IsPrivileged: false,
		}
	}

	username := envOr("USER", envOr("LOGNAME", ""))
	if username == "" {
		username = "uid:" + strconv.FormatUint(uint64(uid), 10)
	}

	return LocalIdentity{
		Username:     username,
		UID:          uid,
		GID:          gid,
		IsPrivileged: uid == 0,
	}
}

func readProcSelfStatus() (uid, gid uint32, ok bool) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	var haveUID, haveGID bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "Uid:"):
			if v, parseOK := firstField(line, "Uid:"); parseOK {
				uid = v
				haveUID = true
			}
		case strings.HasPrefix(line, "Gid:"):
			if v, parseOK := firstField(line, "Gid:"); parseOK {
				gid = v
				haveGID = true
			}
		}
		if haveUID && haveGID {
			break
		}
	}
	return uid, gid, haveUID && haveGID
}

func firstField(line, prefix string) (uint32, bool) {
	fields := strings.Fields(strings.TrimPrefix(line, prefix))
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
