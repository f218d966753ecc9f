package services

import (
	"strings"

	"github.com/aliyun/alibaba-cloud-sdk-go/services/sts"
)

// OSSConfig locates the bucket assets are mirrored to
type OSSConfig struct {
	Endpoint        string
	Region          string
	BucketName      string
	AccessKeyID     string
	AccessKeySecret string
	RoleArn         string
}

type STSCredentials struct {
	AccessKeyId     string `json:"accessKeyId"`
	AccessKeySecret string `json:"accessKeySecret"`
	SecurityToken   string `json:"securityToken"`
	Expiration      string `json:"expiration"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
}

// GetOSSTSToken assumes the upload role and returns temporary credentials
func GetOSSTSToken(cfg OSSConfig) (*STSCredentials, error) {
	// STS client requires region ID without "oss-" prefix (e.g., "cn-beijing" instead of "oss-cn-beijing")
	stsRegion := cfg.Region
	if after, ok := strings.CutPrefix(stsRegion, "oss-"); ok {
		stsRegion = after
	}

	client, err := sts.NewClientWithAccessKey(stsRegion, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}

	request := sts.CreateAssumeRoleRequest()
	request.Scheme = "https"
	request.RoleArn = cfg.RoleArn
	request.RoleSessionName = "witweb-studio-mirror"
	request.DurationSeconds = "3600"

	response, err := client.AssumeRole(request)
	if err != nil {
		return nil, err
	}

	return &STSCredentials{
		AccessKeyId:     response.Credentials.AccessKeyId,
		AccessKeySecret: response.Credentials.AccessKeySecret,
		SecurityToken:   response.Credentials.SecurityToken,
		Expiration:      response.Credentials.Expiration,
		Region:          cfg.Region,
		Bucket:          cfg.BucketName,
	}, nil
}
