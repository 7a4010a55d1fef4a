package blob

import (
	"ngmeta/internal/platform/config"
)

// ConfigFrom reads the storage selection with the NGMETA_STORAGE_ prefix
func ConfigFrom(cfg config.Conf) Config {
	st := cfg.Prefix("NGMETA_STORAGE_")
	s3 := st.Prefix("S3_")
	gcs := st.Prefix("GCS_")
	return Config{
		Type:        st.MayEnum("TYPE", BackendFile, BackendMemory, BackendFile, BackendS3, BackendGCS, BackendSQLite),
		BaseAddress: st.MayString("BASE_ADDRESS", "http://localhost/"),
		Container:   st.MayString("CONTAINER", ""),
		Dir:         st.MayString("DIR", "./data"),
		SQLitePath:  st.MayString("SQLITE_PATH", "./ngmeta.db"),
		S3: S3Config{
			Endpoint:  s3.MayString("ENDPOINT", ""),
			Bucket:    s3.MayString("BUCKET", ""),
			Prefix:    s3.MayString("PREFIX", ""),
			Region:    s3.MayString("REGION", ""),
			UseSSL:    s3.MayBool("SSL", true),
			AccessKey: s3.MayString("ACCESS_KEY", ""),
			SecretKey: s3.MayString("SECRET_KEY", ""),
		},
		GCS: GCSConfig{
			Bucket:          gcs.MayString("BUCKET", ""),
			Prefix:          gcs.MayString("PREFIX", ""),
			Endpoint:        gcs.MayString("ENDPOINT", ""),
			CredentialsFile: gcs.MayString("CREDENTIALS_FILE", ""),
		},
	}
}
