package source

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTP reads "<dir>/<name>.csv" from an FTP server, one connection per table.
type FTP struct {
	addr     string
	dir      string
	user     string
	password string
	timeout  time.Duration
}

func NewFTP(addr, dir, user, password string) *FTP {
	if user == "" {
		user, password = "anonymous", "anonymous"
	}
	return &FTP{
		addr:     addr,
		dir:      dir,
		user:     user,
		password: password,
		timeout:  30 * time.Second,
	}
}

func (f *FTP) Rows(ctx context.Context, name string) ([]Row, error) {
	conn, err := ftp.Dial(f.addr, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(f.user, f.password); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	file := path.Join(f.dir, name+".csv")
	resp, err := conn.Retr(file)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", file, err)
	}
	defer resp.Close()

	rows, err := ReadCSV(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return rows, nil
}
