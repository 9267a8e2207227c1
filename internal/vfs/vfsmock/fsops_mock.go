// Package vfsmock provides a hand-written gomock-style mock of vfs.FSOps,
// in the shape mockgen would generate, for façade tests that need to drive
// vfs.FS without a real driver backing it.
package vfsmock

import (
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/sparrowkernel/sparrow/internal/vfs"
)

// MockFSOps is a mock of the vfs.FSOps interface.
type MockFSOps struct {
	ctrl     *gomock.Controller
	recorder *MockFSOpsMockRecorder
}

// MockFSOpsMockRecorder is the recorder for MockFSOps.
type MockFSOpsMockRecorder struct {
	mock *MockFSOps
}

// NewMockFSOps constructs a MockFSOps.
func NewMockFSOps(ctrl *gomock.Controller) *MockFSOps {
	m := &MockFSOps{ctrl: ctrl}
	m.recorder = &MockFSOpsMockRecorder{mock: m}

	return m
}

// EXPECT returns the object that allows setting up expectations.
func (m *MockFSOps) EXPECT() *MockFSOpsMockRecorder { return m.recorder }

func (m *MockFSOps) GetEntry(parent vfs.Inode, name string) (vfs.Inode, error) {
	m.ctrl.T.Helper()

	ret := m.ctrl.Call(m, "GetEntry", parent, name)

	return ret[0].(vfs.Inode), errOrNil(ret[1])
}

func (mr *MockFSOpsMockRecorder) GetEntry(parent, name any) *gomock.Call {
	mr.mock.ctrl.T.Helper()

	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetEntry", reflect.TypeOf((*MockFSOps)(nil).GetEntry), parent, name)
}

func (m *MockFSOps) Open(ino vfs.Inode) (vfs.FileOps, error) {
	m.ctrl.T.Helper()

	ret := m.ctrl.Call(m, "Open", ino)

	return ret[0].(vfs.FileOps), errOrNil(ret[1])
}

func (mr *MockFSOpsMockRecorder) Open(ino any) *gomock.Call {
	mr.mock.ctrl.T.Helper()

	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Open", reflect.TypeOf((*MockFSOps)(nil).Open), ino)
}

func (m *MockFSOps) Close(h vfs.FileOps) error {
	m.ctrl.T.Helper()

	ret := m.ctrl.Call(m, "Close", h)

	return errOrNil(ret[0])
}

func (mr *MockFSOpsMockRecorder) Close(h any) *gomock.Call {
	mr.mock.ctrl.T.Helper()

	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockFSOps)(nil).Close), h)
}

func (m *MockFSOps) Dup(h vfs.FileOps) (vfs.FileOps, error) {
	m.ctrl.T.Helper()

	ret := m.ctrl.Call(m, "Dup", h)

	return ret[0].(vfs.FileOps), errOrNil(ret[1])
}

func (mr *MockFSOpsMockRecorder) Dup(h any) *gomock.Call {
	mr.mock.ctrl.T.Helper()

	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Dup", reflect.TypeOf((*MockFSOps)(nil).Dup), h)
}

func (m *MockFSOps) GetDents(dir vfs.Inode, cb func(ino uint64, dtype uint8, name string) bool) error {
	m.ctrl.T.Helper()

	ret := m.ctrl.Call(m, "GetDents", dir, cb)

	return errOrNil(ret[0])
}

func (mr *MockFSOpsMockRecorder) GetDents(dir, cb any) *gomock.Call {
	mr.mock.ctrl.T.Helper()

	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetDents", reflect.TypeOf((*MockFSOps)(nil).GetDents), dir, cb)
}

func (m *MockFSOps) Stat(ino vfs.Inode) (vfs.Stat64, error) {
	m.ctrl.T.Helper()

	ret := m.ctrl.Call(m, "Stat", ino)

	return ret[0].(vfs.Stat64), errOrNil(ret[1])
}

func (mr *MockFSOpsMockRecorder) Stat(ino any) *gomock.Call {
	mr.mock.ctrl.T.Helper()

	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Stat", reflect.TypeOf((*MockFSOps)(nil).Stat), ino)
}

func errOrNil(v any) error {
	if v == nil {
		return nil
	}

	return v.(error)
}
