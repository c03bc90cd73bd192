// Package sftpx implements the backend capability over SFTP. Objects live
// under a configured remote directory; uploads go to a temporary name and
// are renamed into place because SFTP has no atomic create.
package sftpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/gpgcloud/gpgcloud/internal/backend"
	"github.com/gpgcloud/gpgcloud/internal/common"
)

const tempDirName = ".tmp"

// Options configure one SFTP namespace.
type Options struct {
	Host         string
	Port         int
	Username     string
	IdentityFile string
	RemoteDir    string
	// HostKeyCallback verifies the server key. When nil the server key is
	// not checked, matching the permissive default of most sftp tooling.
	HostKeyCallback ssh.HostKeyCallback
}

// Backend is an SFTP-backed object namespace.
type Backend struct {
	conn      *ssh.Client
	client    *sftp.Client
	remoteDir string
}

// Dial connects, authenticates with the identity file, and prepares the
// remote and temp directories.
func Dial(opts Options) (*Backend, error) {
	keyBytes, err := os.ReadFile(opts.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse identity file: %w", err)
	}

	hostKeyCallback := opts.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	conn, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", opts.Host, opts.Port), &ssh.ClientConfig{
		User:            opts.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
	})
	if err != nil {
		return nil, backend.Transport("dial", err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, backend.Transport("sftp session", err)
	}

	b := &Backend{conn: conn, client: client, remoteDir: opts.RemoteDir}
	if err := b.ensureDir(path.Join(opts.RemoteDir, tempDirName)); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

// Close releases the SFTP session and the SSH connection.
func (b *Backend) Close() error {
	cerr := b.client.Close()
	if err := b.conn.Close(); err != nil {
		return err
	}
	return cerr
}

func (b *Backend) ensureDir(dir string) error {
	if err := b.client.MkdirAll(dir); err != nil {
		return backend.Transport("mkdir", err)
	}
	return nil
}

func (b *Backend) objectPath(p string) string {
	return path.Join(b.remoteDir, p)
}

func (b *Backend) Put(ctx context.Context, p string, data []byte) error {
	if err := backend.ValidatePath(p); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := b.objectPath(p)
	if err := b.ensureDir(path.Dir(dst)); err != nil {
		return err
	}

	tmp := path.Join(b.remoteDir, tempDirName, uuid.NewString())
	f, err := b.client.Create(tmp)
	if err != nil {
		return mapWriteError(err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = b.client.Remove(tmp)
		return mapWriteError(err)
	}
	if err := f.Close(); err != nil {
		_ = b.client.Remove(tmp)
		return mapWriteError(err)
	}

	// PosixRename overwrites an existing object in one step.
	if err := b.client.PosixRename(tmp, dst); err != nil {
		_ = b.client.Remove(tmp)
		return mapWriteError(err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, p string) ([]byte, error) {
	if err := backend.ValidatePath(p); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := b.client.Open(b.objectPath(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object %q: %w", p, common.ErrNotFound)
		}
		return nil, backend.Transport("get", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, backend.Transport("get", err)
	}
	return data, nil
}

func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	if err := backend.ValidatePath(p); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := b.client.Stat(b.objectPath(p))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, backend.Transport("stat", err)
	}
	return true, nil
}

func (b *Backend) Delete(ctx context.Context, p string) error {
	if err := backend.ValidatePath(p); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.client.Remove(b.objectPath(p))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return backend.Transport("delete", err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string

	walker := b.client.Walk(b.remoteDir)
	for walker.Step() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := walker.Err(); err != nil {
			return nil, backend.Transport("list", err)
		}
		if walker.Stat().IsDir() {
			if path.Base(walker.Path()) == tempDirName {
				walker.SkipDir()
			}
			continue
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(walker.Path(), b.remoteDir), "/")
		if prefix == "" || strings.HasPrefix(rel, prefix) {
			paths = append(paths, rel)
		}
	}
	return paths, nil
}

func mapWriteError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "no space") || strings.Contains(msg, "quota") {
		return fmt.Errorf("%w: %v", common.ErrQuotaExceeded, err)
	}
	return backend.Transport("put", err)
}
