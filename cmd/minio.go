package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"DriveFM/config"
	"DriveFM/storage"

	"github.com/spf13/cobra"
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO连接测试",
	Long:  `测试MinIO对象存储连接是否成功，并确认存储桶可用。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")

		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			log.Fatalf("MinIO连通性检查失败: %v", err)
		}
		fmt.Println("MinIO连接成功！")
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
}
