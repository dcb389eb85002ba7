// Copyright 2025 MCP Compiler Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package internal

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/asertorio/mcp-compiler/pkg/core"
)

// SaveProject writes p to filename, creating the directory if needed. The
// file is replaced atomically through a temporary sibling.
func SaveProject(filename string, p *core.Project) error {
	data, err := core.MarshalProject(p)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write project")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return errors.Wrapf(err, "failed to replace %s", filename)
	}

	if abs, err := filepath.Abs(filename); err == nil {
		filename = abs
	}
	zap.L().Info("Project saved", zap.String("file", filename))
	return nil
}

// LoadProject reads a project file. Older layouts are upgraded on the way in.
func LoadProject(filename string) (*core.Project, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	p, err := core.UnmarshalProject(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", filename)
	}
	zap.L().Debug("Project loaded", zap.String("file", filename), zap.String("project", p.Name))
	return p, nil
}

// FileSaver saves project snapshots to one file.
type FileSaver struct {
	Path string
}

// Save implements store.Saver.
func (s FileSaver) Save(ctx context.Context, p *core.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return SaveProject(s.Path, p)
}
