package feast

import (
	"fmt"
	"strconv"
	"strings"
)

// NewClient 根据端点创建 gRPC 客户端。
//
// 端点格式："localhost:6565" 或 "grpc://localhost:6565"，端口缺省为 6565。
//
//	client, err := feast.NewClient("localhost:6565", "fraud", feast.WithTimeout(200*time.Millisecond))
func NewClient(endpoint, project string, opts ...ClientOption) (Client, error) {
	host, port, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	c, err := NewGrpcClient(host, port, project, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// parseEndpoint 解析端点地址，返回 host 和 port（0 表示使用默认端口）
func parseEndpoint(endpoint string) (string, int, error) {
	endpoint = strings.TrimPrefix(endpoint, "grpc://")
	if endpoint == "" {
		return "", 0, fmt.Errorf("feast endpoint is empty")
	}

	idx := strings.LastIndex(endpoint, ":")
	if idx < 0 {
		return endpoint, 0, nil
	}
	port, err := strconv.Atoi(endpoint[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid feast endpoint %q: %w", endpoint, err)
	}
	return endpoint[:idx], port, nil
}
