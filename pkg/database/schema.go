package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	// Create extension for UUID generation
	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	// Create tables
	tables := []string{
		createUsersTable,
		createAppointmentsTable,
		createPrescriptionsTable,
		createMedicalReportsTable,
		createNotificationsTable,
		createAuditLogsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Create indexes
	indexes := []string{
		createUsersIndexes,
		createAppointmentsIndexes,
		createPrescriptionsIndexes,
		createMedicalReportsIndexes,
		createNotificationsIndexes,
		createAuditLogsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

// SQL DDL statements for table creation
const (
	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			email VARCHAR(254) UNIQUE NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			role VARCHAR(20) NOT NULL,
			phone VARCHAR(15) DEFAULT '',
			address TEXT DEFAULT '',
			date_of_birth DATE,
			gender VARCHAR(1) DEFAULT '',
			blood_group VARCHAR(3) DEFAULT '',
			profession VARCHAR(20) DEFAULT '',
			license_number VARCHAR(50) DEFAULT '',
			profile_completed BOOLEAN DEFAULT FALSE,
			is_active BOOLEAN DEFAULT TRUE,
			last_login TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createAppointmentsTable = `
		CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			patient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			doctor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			appointment_date DATE NOT NULL,
			appointment_time TIME NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			gender VARCHAR(1) DEFAULT '',
			blood_group VARCHAR(3) DEFAULT '',
			height NUMERIC(5,2) DEFAULT 0,
			weight NUMERIC(5,2) DEFAULT 0,
			emergency_contact_name VARCHAR(100) DEFAULT '',
			emergency_contact_phone VARCHAR(15) DEFAULT '',
			symptoms TEXT DEFAULT '',
			medical_history TEXT DEFAULT '',
			current_medications TEXT DEFAULT '',
			insurance_provider VARCHAR(100) DEFAULT '',
			insurance_policy_number VARCHAR(50) DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createPrescriptionsTable = `
		CREATE TABLE IF NOT EXISTS prescriptions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			appointment_id UUID NOT NULL REFERENCES appointments(id) ON DELETE CASCADE,
			patient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			doctor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			diagnosis TEXT NOT NULL,
			medication TEXT NOT NULL,
			instructions TEXT DEFAULT '',
			lab_tests_required BOOLEAN DEFAULT FALSE,
			lab_instructions TEXT DEFAULT '',
			lab_technician_id UUID REFERENCES users(id) ON DELETE SET NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createMedicalReportsTable = `
		CREATE TABLE IF NOT EXISTS medical_reports (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			appointment_id UUID NOT NULL REFERENCES appointments(id) ON DELETE CASCADE,
			patient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			doctor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			lab_technician_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			report_type VARCHAR(20) NOT NULL,
			report_file TEXT DEFAULT '',
			description TEXT NOT NULL,
			notes TEXT DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createNotificationsTable = `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			recipient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			notification_type VARCHAR(50) NOT NULL,
			title VARCHAR(200) NOT NULL,
			message TEXT NOT NULL,
			related_object_id UUID,
			is_read BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createAuditLogsTable = `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID,
			action VARCHAR(100) NOT NULL,
			resource_type VARCHAR(50) NOT NULL,
			resource_id UUID,
			ip_address INET,
			user_agent TEXT,
			success BOOLEAN NOT NULL,
			error_message TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`
)

// SQL DDL statements for index creation. The partial unique index on
// appointments keeps cancelled rows out of the uniqueness constraint so
// a freed slot can be rebooked at the storage level.
const (
	createUsersIndexes = `
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
		CREATE INDEX IF NOT EXISTS idx_users_profession ON users(profession);`

	createAppointmentsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_appointments_patient_id ON appointments(patient_id);
		CREATE INDEX IF NOT EXISTS idx_appointments_doctor_id ON appointments(doctor_id);
		CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status);
		CREATE INDEX IF NOT EXISTS idx_appointments_date ON appointments(appointment_date);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_appointments_slot
			ON appointments(doctor_id, appointment_date, appointment_time)
			WHERE status <> 'cancelled';`

	createPrescriptionsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_prescriptions_appointment_id ON prescriptions(appointment_id);
		CREATE INDEX IF NOT EXISTS idx_prescriptions_patient_id ON prescriptions(patient_id);
		CREATE INDEX IF NOT EXISTS idx_prescriptions_doctor_id ON prescriptions(doctor_id);
		CREATE INDEX IF NOT EXISTS idx_prescriptions_lab_technician_id ON prescriptions(lab_technician_id);
		CREATE INDEX IF NOT EXISTS idx_prescriptions_lab_queue
			ON prescriptions(lab_tests_required) WHERE lab_technician_id IS NULL;`

	createMedicalReportsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_medical_reports_appointment_id ON medical_reports(appointment_id);
		CREATE INDEX IF NOT EXISTS idx_medical_reports_patient_id ON medical_reports(patient_id);
		CREATE INDEX IF NOT EXISTS idx_medical_reports_doctor_id ON medical_reports(doctor_id);
		CREATE INDEX IF NOT EXISTS idx_medical_reports_lab_technician_id ON medical_reports(lab_technician_id);`

	createNotificationsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_notifications_recipient_id ON notifications(recipient_id);
		CREATE INDEX IF NOT EXISTS idx_notifications_unread
			ON notifications(recipient_id) WHERE is_read = FALSE;
		CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications(created_at);`

	createAuditLogsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_resource_type ON audit_logs(resource_type);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at);`
)
