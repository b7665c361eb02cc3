//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/old-maid/internal/types"
)

// MockServer 实现 types.ServerInterface 的 mock
type MockServer struct {
	mock.Mock
}

func (m *MockServer) GetOnlineCount() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockServer) GetClientByID(id string) types.ClientInterface {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(types.ClientInterface)
}

func (m *MockServer) IsShuttingDown() bool {
	args := m.Called()
	return args.Bool(0)
}

// SimpleServer 基于 map 的客户端注册表
type SimpleServer struct {
	mu       sync.RWMutex
	clients  map[string]types.ClientInterface
	Shutdown bool
}

// NewSimpleServer 创建注册表并注册给定的客户端
func NewSimpleServer(clients ...types.ClientInterface) *SimpleServer {
	s := &SimpleServer{clients: make(map[string]types.ClientInterface)}
	for _, c := range clients {
		s.Add(c)
	}
	return s
}

// Add 注册客户端
func (s *SimpleServer) Add(c types.ClientInterface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.GetID()] = c
}

// Remove 注销客户端
func (s *SimpleServer) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}

func (s *SimpleServer) GetOnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *SimpleServer) GetClientByID(id string) types.ClientInterface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil
	}
	return c
}

func (s *SimpleServer) IsShuttingDown() bool { return s.Shutdown }
