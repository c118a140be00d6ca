// Package cluster wraps the Kubernetes API behind the two read-only
// operations the command layer consumes.
package cluster

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

type Client struct {
	clientset kubernetes.Interface
}

// NewClient builds a client from an explicit kubeconfig path, falling back to
// in-cluster configuration and then to ~/.kube/config.
func NewClient(kubeconfig string) (*Client, error) {
	clientset, err := buildKubeClient(kubeconfig)
	if err != nil {
		return nil, err
	}
	return &Client{clientset: clientset}, nil
}

// NewClientWithInterface wires an existing clientset; tests inject the fake one.
func NewClientWithInterface(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// PodStats counts the pods of a namespace and the subset in the Running phase.
func (c *Client) PodStats(ctx context.Context, namespace string) (int, int, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("listing pods: %w", err)
	}
	running := 0
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodRunning {
			running++
		}
	}
	return len(pods.Items), running, nil
}

// TailLogs streams the last `lines` lines of one pod's output.
func (c *Client) TailLogs(ctx context.Context, namespace, pod string, lines int64) (string, error) {
	req := c.clientset.CoreV1().Pods(namespace).GetLogs(pod, &corev1.PodLogOptions{TailLines: &lines})
	stream, err := req.Stream(ctx)
	if err != nil {
		return "", fmt.Errorf("opening log stream: %w", err)
	}
	defer stream.Close()
	data, err := io.ReadAll(stream)
	if err != nil {
		return "", fmt.Errorf("reading log stream: %w", err)
	}
	return string(data), nil
}

// Unavailable stands in when no cluster configuration could be loaded.
// Every call fails, so command handlers fall through to their API-error
// replies instead of the whole server refusing to start.
type Unavailable struct {
	Reason error
}

func (u Unavailable) PodStats(context.Context, string) (int, int, error) {
	return 0, 0, fmt.Errorf("cluster unavailable: %w", u.Reason)
}

func (u Unavailable) TailLogs(context.Context, string, string, int64) (string, error) {
	return "", fmt.Errorf("cluster unavailable: %w", u.Reason)
}

func buildKubeClient(kubeconfig string) (kubernetes.Interface, error) {
	if strings.TrimSpace(kubeconfig) != "" {
		cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig %s: %w", kubeconfig, err)
		}
		return kubernetes.NewForConfig(cfg)
	}

	cfg, err := rest.InClusterConfig()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return nil, fmt.Errorf("failed to create in-cluster config: %w", err)
		}
		path := filepath.Join(home, ".kube", "config")
		cfg, err = clientcmd.BuildConfigFromFlags("", path)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig %s: %w", path, err)
		}
	}
	return kubernetes.NewForConfig(cfg)
}

// DetectNamespace resolves the namespace commands operate on: explicit
// configuration wins, then the service-account mount, then POD_NAMESPACE,
// then "default".
func DetectNamespace(explicit string) string {
	if ns := strings.TrimSpace(explicit); ns != "" {
		return ns
	}
	data, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace")
	if err == nil {
		if ns := strings.TrimSpace(string(data)); ns != "" {
			return ns
		}
	}
	if ns := strings.TrimSpace(os.Getenv("POD_NAMESPACE")); ns != "" {
		return ns
	}
	return "default"
}
